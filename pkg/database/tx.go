package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repository
// methods that participate in a caller-owned transaction take a DBTX and
// never commit; methods that take none self-commit on the pool.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxProvider yields scoped write transactions with deterministic
// commit-on-success, rollback-on-failure semantics.
type TxProvider struct {
	db *sql.DB
}

// NewTxProvider creates a transaction provider over the connection pool.
func NewTxProvider(db *sql.DB) *TxProvider {
	return &TxProvider{db: db}
}

// RunInTx executes fn inside a single transaction. The transaction commits
// when fn returns nil and rolls back when fn returns an error or panics.
// Nested transactions are not supported.
func (p *TxProvider) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
