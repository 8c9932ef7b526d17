// Package database provides the relational client, schema migrations and
// the scoped transaction provider behind the repository ports.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	_ "modernc.org/sqlite"             // cgo-free sqlite driver
)

// Client wraps the SQL connection pool for the selected backend.
type Client struct {
	db      *sql.DB
	backend Backend
}

// DB returns the underlying connection pool for health checks and repositories.
func (c *Client) DB() *sql.DB { return c.db }

// Backend returns the storage engine the client is connected to.
func (c *Client) Backend() Backend { return c.backend }

// Close closes the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient opens the configured backend, configures pooling, and applies
// pending migrations. It refuses to run against a mismatched schema.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Backend {
	case BackendPostgres:
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	case BackendSQLite:
		if cfg.LocalResetDB {
			if err := os.Remove(cfg.Path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to reset database file %s: %w", cfg.Path, err)
			}
		}
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// modernc sqlite serializes access through one connection.
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Client{db: db, backend: cfg.Backend}, nil
}
