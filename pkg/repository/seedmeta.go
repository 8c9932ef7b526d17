package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedMeta records bookkeeping about seeded fixture data.
type SeedMeta struct {
	db *sql.DB
}

// NewSeedMeta creates a seed-meta repository on the shared pool.
func NewSeedMeta(db *sql.DB) *SeedMeta {
	return &SeedMeta{db: db}
}

// Get returns the stored value for a key, or "" when absent.
func (r *SeedMeta) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT meta_value FROM seed_meta WHERE meta_key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get seed meta %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for a key.
func (r *SeedMeta) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seed_meta (meta_key, meta_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (meta_key)
		DO UPDATE SET meta_value = excluded.meta_value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set seed meta %s: %w", key, err)
	}
	return nil
}
