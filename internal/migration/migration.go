package migration

import (
	"context"

	"gocohort/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The statements stay
// within the SQL shared by PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		fn   func(context.Context, *sqlx.DB) error
	}{
		{"actor_profiles table", r.createActorProfilesTable},
		{"clustering_runs table", r.createClusteringRunsTable},
		{"cohorts table", r.createCohortsTable},
		{"actor_cohort_assignments table", r.createAssignmentsTable},
		{"indexes", r.createIndexes},
	}
	for _, step := range steps {
		if err := step.fn(ctx, db); err != nil {
			return errors.Wrapf(err, "failed to create %s", step.name)
		}
	}
	return nil
}

func (r *MigrationRunner) createActorProfilesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS actor_profiles (
			actor_id TEXT PRIMARY KEY,
			driver_distribution TEXT NOT NULL,
			contradiction_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			superposition_detected BOOLEAN,
			coherence DOUBLE PRECISION,
			identity_markers TEXT,
			signal_count INTEGER NOT NULL DEFAULT 0,
			profile_completeness DOUBLE PRECISION NOT NULL DEFAULT 0,
			data_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *MigrationRunner) createClusteringRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS clustering_runs (
			run_id TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			parameters TEXT NOT NULL,
			n_actors INTEGER NOT NULL,
			n_clusters INTEGER NOT NULL,
			silhouette_score DOUBLE PRECISION NOT NULL,
			calinski_harabasz_score DOUBLE PRECISION NOT NULL,
			davies_bouldin_score DOUBLE PRECISION,
			quality TEXT NOT NULL,
			feature_schema TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *MigrationRunner) createCohortsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cohorts (
			cohort_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES clustering_runs(run_id) ON DELETE CASCADE,
			cluster_label INTEGER NOT NULL,
			cohort_name TEXT NOT NULL,
			cohort_description TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL,
			percentage DOUBLE PRECISION NOT NULL,
			membership_hash TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *MigrationRunner) createAssignmentsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS actor_cohort_assignments (
			run_id TEXT NOT NULL REFERENCES clustering_runs(run_id) ON DELETE CASCADE,
			actor_id TEXT NOT NULL,
			cohort_id TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			alternatives TEXT,
			assigned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, actor_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_clustering_runs_created_at ON clustering_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cohorts_run_id ON cohorts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_actor_id ON actor_cohort_assignments(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_cohort_id ON actor_cohort_assignments(cohort_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
