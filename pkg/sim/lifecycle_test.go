package sim

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// fakeRunStore fails UpdateRunStatus a configurable number of times before
// succeeding, and records every attempted write.
type fakeRunStore struct {
	failures  int
	alwaysErr error
	updates   []models.RunStatus
}

func (f *fakeRunStore) CreateRun(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRunStore) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRunStore) UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, completedAt *time.Time) error {
	f.updates = append(f.updates, status)
	if f.alwaysErr != nil {
		return f.alwaysErr
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("write failed")
	}
	return nil
}

func (f *fakeRunStore) UpdateRunStatusIn(ctx context.Context, q database.DBTX, runID string, status models.RunStatus, completedAt *time.Time) error {
	return f.UpdateRunStatus(ctx, runID, status, completedAt)
}

func (f *fakeRunStore) WriteTurnMetadata(ctx context.Context, q database.DBTX, meta models.TurnMetadata) error {
	return errors.New("not implemented")
}

func newTestLifecycle(store *fakeRunStore) (*Lifecycle, *[]time.Duration) {
	lifecycle := NewLifecycle(store, slog.Default())
	var slept []time.Duration
	lifecycle.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return lifecycle, &slept
}

func runningRun() *models.Run {
	return &models.Run{RunID: "run-1", Status: models.RunStatusRunning}
}

func TestLifecycleUpdateRunStatus(t *testing.T) {
	t.Run("successful transition mutates the run", func(t *testing.T) {
		store := &fakeRunStore{}
		lifecycle, slept := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, run.Status)
		require.NotNil(t, run.CompletedAt)
		assert.Empty(t, *slept)
		assert.Equal(t, []models.RunStatus{models.RunStatusCompleted}, store.updates)
	})

	t.Run("self transition is a no-op", func(t *testing.T) {
		store := &fakeRunStore{}
		lifecycle, _ := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusRunning)
		require.NoError(t, err)
		assert.Empty(t, store.updates)
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		store := &fakeRunStore{}
		lifecycle, _ := newTestLifecycle(store)
		run := &models.Run{RunID: "run-1", Status: models.RunStatusCompleted}

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusRunning)
		require.Error(t, err)
		var invalid *InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, models.RunStatusCompleted, invalid.Current)
		assert.Equal(t, models.RunStatusRunning, invalid.Target)
		// Storage is never touched for rejected transitions.
		assert.Empty(t, store.updates)
	})

	t.Run("transient failures retry with doubling backoff", func(t *testing.T) {
		store := &fakeRunStore{failures: 3}
		lifecycle, slept := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, run.Status)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *slept)
		assert.Len(t, store.updates, 4)
	})

	t.Run("exhausted retries attempt a best-effort FAILED write", func(t *testing.T) {
		store := &fakeRunStore{failures: 4}
		lifecycle, _ := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusCompleted)
		require.Error(t, err)
		var updateErr *RunStatusUpdateError
		require.True(t, errors.As(err, &updateErr))
		assert.Equal(t, models.RunStatusCompleted, updateErr.Target)

		// 4 COMPLETED attempts, then the FAILED fallback which succeeds.
		require.Len(t, store.updates, 5)
		assert.Equal(t, models.RunStatusFailed, store.updates[4])
		assert.Equal(t, models.RunStatusFailed, run.Status)
	})

	t.Run("failed FAILED fallback leaves the run untouched", func(t *testing.T) {
		store := &fakeRunStore{alwaysErr: errors.New("database gone")}
		lifecycle, _ := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusCompleted)
		require.Error(t, err)
		assert.Equal(t, models.RunStatusRunning, run.Status)
		assert.Nil(t, run.CompletedAt)
	})

	t.Run("failing to FAILED does not recurse into the fallback", func(t *testing.T) {
		store := &fakeRunStore{alwaysErr: errors.New("database gone")}
		lifecycle, _ := newTestLifecycle(store)
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusFailed)
		require.Error(t, err)
		// 4 attempts, no extra fallback write.
		assert.Len(t, store.updates, 4)
	})

	t.Run("cancelled context stops the retry loop", func(t *testing.T) {
		store := &fakeRunStore{failures: 4}
		lifecycle, _ := newTestLifecycle(store)
		lifecycle.sleep = func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}
		run := runningRun()

		err := lifecycle.UpdateRunStatus(context.Background(), run, models.RunStatusCompleted)
		require.Error(t, err)
		var updateErr *RunStatusUpdateError
		require.True(t, errors.As(err, &updateErr))
	})
}
