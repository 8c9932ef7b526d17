package sim

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// TurnActions are the accepted actions of one turn in persisted form.
type TurnActions struct {
	Likes    []models.Like
	Comments []models.Comment
	Follows  []models.Follow
}

// Persistence coordinates the transactional writes of the engine: one turn is
// one atomic write, and run completion couples the final metrics with the
// COMPLETED transition.
type Persistence struct {
	tx      TxProvider
	runs    RunStore
	metrics MetricsStore
	actions ActionStore
	logger  *slog.Logger
}

// NewPersistence creates a persistence coordinator.
func NewPersistence(tx TxProvider, runs RunStore, metrics MetricsStore, actions ActionStore, logger *slog.Logger) *Persistence {
	return &Persistence{
		tx:      tx,
		runs:    runs,
		metrics: metrics,
		actions: actions,
		logger:  logger.With("component", "persistence"),
	}
}

// WriteTurn commits the turn metadata, turn metrics and accepted actions in
// one transaction. Any failure rolls back all of them; no partial turn state
// is ever visible. A DuplicateTurnMetadataError propagates so the caller can
// absorb it as idempotent success.
func (p *Persistence) WriteTurn(ctx context.Context, meta models.TurnMetadata, metrics models.TurnMetrics, actions TurnActions) error {
	return p.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := p.runs.WriteTurnMetadata(ctx, tx, meta); err != nil {
			return err
		}
		if err := p.metrics.WriteTurnMetrics(ctx, tx, metrics); err != nil {
			return err
		}
		if err := p.actions.WriteLikes(ctx, tx, actions.Likes); err != nil {
			return err
		}
		if err := p.actions.WriteComments(ctx, tx, actions.Comments); err != nil {
			return err
		}
		return p.actions.WriteFollows(ctx, tx, actions.Follows)
	})
}

// WriteRun commits the final run metrics and the COMPLETED transition in one
// transaction. On success run is mutated to its terminal state.
func (p *Persistence) WriteRun(ctx context.Context, run *models.Run, metrics models.RunMetrics) error {
	completedAt := time.Now().UTC()
	if metrics.CreatedAt.IsZero() {
		metrics.CreatedAt = completedAt
	}
	err := p.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := p.metrics.WriteRunMetrics(ctx, tx, metrics); err != nil {
			return err
		}
		return p.runs.UpdateRunStatusIn(ctx, tx, run.RunID, models.RunStatusCompleted, &completedAt)
	})
	if err != nil {
		return err
	}
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &completedAt
	return nil
}
