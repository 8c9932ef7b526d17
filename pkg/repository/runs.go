package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
)

// Runs persists simulation runs and their per-turn metadata.
type Runs struct {
	db *sql.DB
}

// NewRuns creates a runs repository on the shared pool.
func NewRuns(db *sql.DB) *Runs {
	return &Runs{db: db}
}

// CreateRun inserts a new run in RUNNING state and returns it. The run_id is
// assigned here; on failure no run exists and no id is reported.
func (r *Runs) CreateRun(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	now := time.Now().UTC()
	run := &models.Run{
		RunID:               uuid.NewString(),
		CreatedAt:           now,
		TotalTurns:          config.NumTurns,
		TotalAgents:         config.NumAgents,
		FeedAlgorithm:       config.FeedAlgorithm,
		FeedAlgorithmConfig: config.FeedAlgorithmConfig,
		MetricKeys:          config.ResolvedMetricKeys(),
		StartedAt:           now,
		Status:              models.RunStatusRunning,
	}

	var algoConfig []byte
	if run.FeedAlgorithmConfig != nil {
		data, err := marshalJSON(run.FeedAlgorithmConfig)
		if err != nil {
			return nil, &sim.RunCreationError{Cause: err}
		}
		algoConfig = data
	}
	metricKeys, err := marshalJSON(run.MetricKeys)
	if err != nil {
		return nil, &sim.RunCreationError{Cause: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, total_turns, total_agents, feed_algorithm,
			feed_algorithm_config, metric_keys, started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.RunID, run.CreatedAt, run.TotalTurns, run.TotalAgents, run.FeedAlgorithm,
		nullBytes(algoConfig), metricKeys, run.StartedAt, string(run.Status))
	if err != nil {
		return nil, &sim.RunCreationError{Cause: err}
	}

	return run, nil
}

const runColumns = `run_id, created_at, total_turns, total_agents, feed_algorithm,
	feed_algorithm_config, metric_keys, started_at, status, completed_at`

// GetRun fetches a run by id.
func (r *Runs) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = $1`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", sim.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (r *Runs) ListRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// UpdateRunStatus writes a new lifecycle status. completedAt must be set for
// terminal states and nil otherwise; the caller owns transition validation.
func (r *Runs) UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, completedAt *time.Time) error {
	return r.UpdateRunStatusIn(ctx, r.db, runID, status, completedAt)
}

// UpdateRunStatusIn is UpdateRunStatus inside the caller's transaction, used
// for the atomic run-completion write.
func (r *Runs) UpdateRunStatusIn(ctx context.Context, q database.DBTX, runID string, status models.RunStatus, completedAt *time.Time) error {
	var completed any
	if completedAt != nil {
		completed = completedAt.UTC()
	}
	result, err := q.ExecContext(ctx,
		`UPDATE runs SET status = $1, completed_at = $2 WHERE run_id = $3`,
		string(status), completed, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s status: %w", runID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run %s status: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", sim.ErrRunNotFound, runID)
	}
	return nil
}

// WriteTurnMetadata inserts the turn summary inside the caller's transaction.
// A second write for the same (run_id, turn_number) yields
// DuplicateTurnMetadataError.
func (r *Runs) WriteTurnMetadata(ctx context.Context, q database.DBTX, meta models.TurnMetadata) error {
	totals, err := marshalJSON(meta.TotalActions)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO turn_metadata (run_id, turn_number, total_actions, created_at)
		VALUES ($1, $2, $3, $4)`,
		meta.RunID, meta.TurnNumber, totals, meta.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return &sim.DuplicateTurnMetadataError{RunID: meta.RunID, TurnNumber: meta.TurnNumber}
		}
		return fmt.Errorf("failed to write turn metadata for run %s turn %d: %w",
			meta.RunID, meta.TurnNumber, err)
	}
	return nil
}

// GetTurnMetadata returns the metadata for one turn, or nil when the turn has
// not been committed.
func (r *Runs) GetTurnMetadata(ctx context.Context, runID string, turnNumber int) (*models.TurnMetadata, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, turn_number, total_actions, created_at
		FROM turn_metadata WHERE run_id = $1 AND turn_number = $2`,
		runID, turnNumber)

	meta, err := scanTurnMetadata(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn metadata for run %s turn %d: %w", runID, turnNumber, err)
	}
	return meta, nil
}

// ListTurnMetadata returns all committed turn metadata for a run in turn order.
func (r *Runs) ListTurnMetadata(ctx context.Context, runID string) ([]models.TurnMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, turn_number, total_actions, created_at
		FROM turn_metadata WHERE run_id = $1 ORDER BY turn_number`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turn metadata for run %s: %w", runID, err)
	}
	defer rows.Close()

	var metas []models.TurnMetadata
	for rows.Next() {
		meta, err := scanTurnMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn metadata: %w", err)
		}
		metas = append(metas, *meta)
	}
	return metas, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var status string
	var algoConfig, metricKeys []byte
	var completedAt sql.NullTime

	err := row.Scan(&run.RunID, &run.CreatedAt, &run.TotalTurns, &run.TotalAgents,
		&run.FeedAlgorithm, &algoConfig, &metricKeys, &run.StartedAt, &status, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)
	if len(algoConfig) > 0 {
		if err := json.Unmarshal(algoConfig, &run.FeedAlgorithmConfig); err != nil {
			return nil, fmt.Errorf("invalid feed_algorithm_config: %w", err)
		}
	}
	if err := json.Unmarshal(metricKeys, &run.MetricKeys); err != nil {
		return nil, fmt.Errorf("invalid metric_keys: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

func scanTurnMetadata(row rowScanner) (*models.TurnMetadata, error) {
	var meta models.TurnMetadata
	var totals []byte

	err := row.Scan(&meta.RunID, &meta.TurnNumber, &totals, &meta.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(totals, &meta.TotalActions); err != nil {
		return nil, fmt.Errorf("invalid total_actions: %w", err)
	}
	return &meta, nil
}
