package postgres

import (
	"context"
	"strings"

	"gocohort/internal"
	"gocohort/internal/errors"
	"gocohort/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DriverSQLite selects the embedded SQLite driver for single-file stores
const DriverSQLite = "sqlite"

// Connect opens the database, checks the connection and applies migrations.
// For postgres an sslmode missing from the URL is taken from sslMode.
func Connect(ctx context.Context, driver, url, sslMode string) (*sqlx.DB, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	if driver == "" {
		driver = "postgres"
	}
	if driver == "postgres" && sslMode != "" && !strings.Contains(url, "sslmode=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "sslmode=" + sslMode
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	if driver == DriverSQLite {
		// one connection keeps :memory: databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "database migration failed"))
	}

	internal.DefaultLogger.Info("connected to %s database, schema version %s", driver, migrator.Version())
	return db, nil
}
