package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Status updates retry on write failure with 2^attempt backoff.
const statusUpdateRetries = 3

// Lifecycle applies run status transitions through the state machine, with
// bounded retries on the underlying write.
type Lifecycle struct {
	runs   RunStore
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLifecycle creates a lifecycle manager.
func NewLifecycle(runs RunStore, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		runs:   runs,
		logger: logger.With("component", "lifecycle"),
		sleep:  sleepContext,
	}
}

// UpdateRunStatus transitions run to target and mutates run in place on
// success. Self-transitions are no-ops; invalid transitions raise
// InvalidTransitionError without touching storage. The write retries up to
// three times; if all retries fail and target is not FAILED, one best-effort
// FAILED write is attempted before RunStatusUpdateError is returned.
func (l *Lifecycle) UpdateRunStatus(ctx context.Context, run *models.Run, target models.RunStatus) error {
	if run.Status == target {
		return nil
	}
	if !run.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{Current: run.Status, Target: target}
	}

	var completedAt *time.Time
	if target.Terminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	err := l.writeWithRetry(ctx, run.RunID, target, completedAt)
	if err == nil {
		run.Status = target
		run.CompletedAt = completedAt
		return nil
	}

	if target != models.RunStatusFailed {
		now := time.Now().UTC()
		if failErr := l.runs.UpdateRunStatus(ctx, run.RunID, models.RunStatusFailed, &now); failErr != nil {
			l.logger.Error("Best-effort FAILED transition also failed",
				"run_id", run.RunID, "error", failErr)
		} else {
			run.Status = models.RunStatusFailed
			run.CompletedAt = &now
		}
	}
	return &RunStatusUpdateError{RunID: run.RunID, Target: target, Cause: err}
}

func (l *Lifecycle) writeWithRetry(ctx context.Context, runID string, target models.RunStatus, completedAt *time.Time) error {
	var lastErr error
	for attempt := 0; attempt <= statusUpdateRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			l.logger.Warn("Retrying run status update",
				"run_id", runID, "target", string(target), "attempt", attempt, "backoff", backoff)
			if err := l.sleep(ctx, backoff); err != nil {
				return err
			}
		}
		lastErr = l.runs.UpdateRunStatus(ctx, runID, target, completedAt)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
