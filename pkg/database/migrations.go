package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	dbdriver "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql
var postgresMigrationsFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrationsFS embed.FS

// requiredSchemaVersion is the migration version this binary was built for.
// After applying pending migrations the database must sit exactly at this
// version; anything else means binary and schema are out of step and the
// engine refuses to run.
const requiredSchemaVersion uint = 1

// runMigrations applies embedded migrations for the selected backend and
// verifies the resulting schema version.
//
// Migration files are embedded into the binary with go:embed so production
// deployments never depend on external files. Each backend keeps its own
// dialect of the same logical schema under pkg/database/migrations/.
func runMigrations(db *sql.DB, backend Backend) error {
	var (
		driver dbdriver.Driver
		fsys   embed.FS
		dir    string
		err    error
	)

	switch backend {
	case BackendPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
		fsys, dir = postgresMigrationsFS, "migrations/postgres"
	case BackendSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
		fsys, dir = sqliteMigrationsFS, "migrations/sqlite"
	default:
		return fmt.Errorf("unknown database backend %q", backend)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sourceDriver, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(backend), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema is dirty at version %d, refusing to run", version)
	}
	if version != requiredSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, binary requires %d", version, requiredSchemaVersion)
	}

	// Close only the migration source. m.Close() would also close the database
	// driver, which closes the shared *sql.DB.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}

	return nil
}
