// Package repository implements the durable storage ports over database/sql.
// Methods that take a database.DBTX participate in the caller's transaction
// and never commit; all other methods self-commit on the pool. Storage-engine
// errors are translated into the domain taxonomy before they leave this
// package.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrHandleAlreadyExists is returned when an agent handle collides with an
// existing one.
var ErrHandleAlreadyExists = errors.New("handle already exists")

// isUniqueViolation reports whether err is a primary-key or unique
// constraint violation on either backend.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc sqlite reports constraint violations by message. Match only the
	// uniqueness kinds; foreign-key, check and not-null failures must keep
	// their own identity.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// marshalJSON marshals v for a JSON column, failing loudly instead of
// persisting a corrupt row.
func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return data, nil
}

// nullStr converts an empty string to SQL NULL.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullBytes converts empty bytes to SQL NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// nullTime converts a zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func fromNullTime(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}
