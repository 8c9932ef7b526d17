package actiongen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

func randomTestCandidates() []models.Post {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Post{
		candidatePost("a", "@a", 10, 0, 0, base),
		candidatePost("b", "@b", 8, 0, 0, base),
		candidatePost("c", "@c", 6, 0, 0, base),
		candidatePost("d", "@d", 4, 0, 0, base),
	}
}

func TestRandomSimpleGenerate(t *testing.T) {
	gen := NewRandomSimple(models.ActionTypeLike)

	t.Run("fixed seed is reproducible", func(t *testing.T) {
		req := testRequest(models.ActionTypeLike, randomTestCandidates())
		req.Config = map[string]any{"seed": float64(42), "probability": 0.5}

		first, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		second, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].PostID, second[i].PostID)
		}
	})

	t.Run("derived seed is stable per run and agent", func(t *testing.T) {
		req := testRequest(models.ActionTypeLike, randomTestCandidates())

		first, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		second, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, len(first), len(second))
	})

	t.Run("probability one selects every ranked candidate", func(t *testing.T) {
		req := testRequest(models.ActionTypeLike, randomTestCandidates())
		req.Config = map[string]any{"probability": 1.0}

		actions, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, actions, req.MaxActions)
	})

	t.Run("probability zero selects nothing", func(t *testing.T) {
		req := testRequest(models.ActionTypeLike, randomTestCandidates())
		req.Config = map[string]any{"probability": 0.0}

		actions, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("out-of-range probability falls back to default", func(t *testing.T) {
		req := testRequest(models.ActionTypeLike, randomTestCandidates())
		req.Config = map[string]any{"probability": 1.5, "seed": float64(7)}

		withInvalid, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)

		req.Config = map[string]any{"seed": float64(7)}
		withDefault, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, len(withDefault), len(withInvalid))
	})

	t.Run("empty candidates produce no actions", func(t *testing.T) {
		actions, err := gen.Generate(context.Background(), testRequest(models.ActionTypeLike, nil))
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("selections come from the candidate set only", func(t *testing.T) {
		candidates := randomTestCandidates()
		valid := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			valid[c.PostID] = struct{}{}
		}

		req := testRequest(models.ActionTypeLike, candidates)
		req.Config = map[string]any{"probability": 1.0}
		actions, err := gen.Generate(context.Background(), req)
		require.NoError(t, err)
		for _, a := range actions {
			_, ok := valid[a.PostID]
			assert.True(t, ok, "unexpected target %s", a.PostID)
		}
	})
}
