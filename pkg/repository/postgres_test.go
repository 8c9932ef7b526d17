package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
	"github.com/codeready-toolchain/socialsim/test/util"
)

// The repositories run the same statements against both backends; this test
// exercises the PostgreSQL driver and its error translation specifically.
func TestRunsAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	ctx := context.Background()
	db := util.SetupPostgresDatabase(t).DB()
	runs := NewRuns(db)
	agents := NewAgents(db)

	run, err := runs.CreateRun(ctx, testConfig())
	require.NoError(t, err)

	stored, err := runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, stored.Status)
	assert.Equal(t, models.DefaultMetricKeys, stored.MetricKeys)

	t.Run("pg unique violation maps to duplicate turn metadata", func(t *testing.T) {
		meta := models.TurnMetadata{
			RunID:        run.RunID,
			TurnNumber:   0,
			TotalActions: map[models.ActionType]int{models.ActionTypeLike: 1},
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, runs.WriteTurnMetadata(ctx, db, meta))

		err := runs.WriteTurnMetadata(ctx, db, meta)
		var dup *sim.DuplicateTurnMetadataError
		require.True(t, errors.As(err, &dup))
	})

	t.Run("pg unique violation maps to handle collision", func(t *testing.T) {
		_, err := agents.CreateAgent(ctx, models.Agent{
			Handle:        "@taken",
			PersonaSource: models.PersonaSourceUserGenerated,
		})
		require.NoError(t, err)

		_, err = agents.CreateAgent(ctx, models.Agent{
			Handle:        "@Taken",
			PersonaSource: models.PersonaSourceUserGenerated,
		})
		assert.ErrorIs(t, err, ErrHandleAlreadyExists)
	})
}
