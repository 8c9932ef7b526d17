package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Metrics persists per-turn and per-run metric values.
type Metrics struct {
	db *sql.DB
}

// NewMetrics creates a metrics repository on the shared pool.
func NewMetrics(db *sql.DB) *Metrics {
	return &Metrics{db: db}
}

// WriteTurnMetrics upserts the metrics for one turn inside the caller's
// transaction.
func (r *Metrics) WriteTurnMetrics(ctx context.Context, q database.DBTX, metrics models.TurnMetrics) error {
	data, err := marshalJSON(metrics.Metrics)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO turn_metrics (run_id, turn_number, metrics, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, turn_number)
		DO UPDATE SET metrics = excluded.metrics, created_at = excluded.created_at`,
		metrics.RunID, metrics.TurnNumber, data, metrics.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to write turn metrics for run %s turn %d: %w",
			metrics.RunID, metrics.TurnNumber, err)
	}
	return nil
}

// WriteRunMetrics upserts the final metrics for a run inside the caller's
// transaction.
func (r *Metrics) WriteRunMetrics(ctx context.Context, q database.DBTX, metrics models.RunMetrics) error {
	data, err := marshalJSON(metrics.Metrics)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO run_metrics (run_id, metrics, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id)
		DO UPDATE SET metrics = excluded.metrics, created_at = excluded.created_at`,
		metrics.RunID, data, metrics.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to write run metrics for run %s: %w", metrics.RunID, err)
	}
	return nil
}

// GetTurnMetrics returns the metrics for one turn, or nil when none were
// written.
func (r *Metrics) GetTurnMetrics(ctx context.Context, runID string, turnNumber int) (*models.TurnMetrics, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, turn_number, metrics, created_at
		FROM turn_metrics WHERE run_id = $1 AND turn_number = $2`,
		runID, turnNumber)

	var tm models.TurnMetrics
	var data []byte
	err := row.Scan(&tm.RunID, &tm.TurnNumber, &data, &tm.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn metrics for run %s turn %d: %w", runID, turnNumber, err)
	}
	if err := json.Unmarshal(data, &tm.Metrics); err != nil {
		return nil, fmt.Errorf("invalid turn metrics: %w", err)
	}
	return &tm, nil
}

// GetRunMetrics returns the final metrics for a run, or nil when none were
// written.
func (r *Metrics) GetRunMetrics(ctx context.Context, runID string) (*models.RunMetrics, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT run_id, metrics, created_at FROM run_metrics WHERE run_id = $1`, runID)

	var rm models.RunMetrics
	var data []byte
	err := row.Scan(&rm.RunID, &data, &rm.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run metrics for run %s: %w", runID, err)
	}
	if err := json.Unmarshal(data, &rm.Metrics); err != nil {
		return nil, fmt.Errorf("invalid run metrics: %w", err)
	}
	return &rm, nil
}
