package container

import (
	"context"
	"fmt"

	"gocohort/adapters/excel"
	"gocohort/adapters/postgres"
	"gocohort/app"
	"gocohort/internal"
	"gocohort/internal/config"
	"gocohort/internal/errors"
	"gocohort/internal/testkit"
	"gocohort/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	CohortStore ports.CohortStore
	ActorRepo   *postgres.ActorRepository

	// Services
	Segmentation *app.SegmentationService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// InitWithDatabase connects to the configured database, applies migrations
// and wires the SQL repositories
func (c *Container) InitWithDatabase(ctx context.Context) error {
	db, err := postgres.Connect(ctx, c.Config.Database.Driver, c.Config.Database.URL, c.Config.Database.SSLMode)
	if err != nil {
		return err
	}
	c.DB = db
	c.CohortStore = postgres.NewCohortRepository(db)
	c.ActorRepo = postgres.NewActorRepository(db)
	c.initServices()
	return nil
}

// InitInMemory wires an in-memory cohort store; nothing outlives the process
func (c *Container) InitInMemory() {
	c.CohortStore = testkit.NewInMemoryCohortStore()
	c.initServices()
}

// InitWithoutStore wires the services with persistence disabled
func (c *Container) InitWithoutStore() {
	c.CohortStore = nil
	c.initServices()
}

// Init picks the database when one is configured. Without one it falls back
// to memory when allowed and fails otherwise.
func (c *Container) Init(ctx context.Context, memoryFallback bool) error {
	switch {
	case c.Config.Database.Enabled():
		return c.InitWithDatabase(ctx)
	case memoryFallback:
		internal.DefaultLogger.Warn("DATABASE_URL not set, results are kept in memory only")
		c.InitInMemory()
		return nil
	default:
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
}

func (c *Container) initServices() {
	c.Segmentation = app.NewSegmentationService(c.CohortStore)
}

// RunOptions returns the pipeline defaults from configuration
func (c *Container) RunOptions() app.RunOptions {
	return app.OptionsFromConfig(c.Config)
}

// ActorSource reads actors from path when given, otherwise from the
// actor_profiles table
func (c *Container) ActorSource(path string) (ports.ActorSource, error) {
	if path != "" {
		return excel.NewFileSource(path), nil
	}
	if c.ActorRepo == nil {
		return nil, errors.InvalidInput("an actor file is required when no database is configured")
	}
	return c.ActorRepo, nil
}

// Shutdown releases held resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
