package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

func testPost(uri string, createdAt time.Time) models.Post {
	return models.Post{
		PostID:       models.MakePostID(models.PostSourceBluesky, uri),
		Source:       models.PostSourceBluesky,
		URI:          uri,
		AuthorHandle: "@author",
		CreatedAt:    createdAt,
	}
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()

	algo, err := registry.Get("chronological")
	require.NoError(t, err)
	assert.NotNil(t, algo)

	_, err = registry.Get("engagement_weighted")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Contains(t, err.Error(), "chronological")
}

func TestChronologicalOrdering(t *testing.T) {
	agent := models.Agent{Handle: "@reader"}
	candidates := []models.Post{
		testPost("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		testPost("b", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		testPost("c", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
	}
	algo := &Chronological{}

	t.Run("newest first by default", func(t *testing.T) {
		result, err := algo.Generate(candidates, agent, MaxPostsPerFeed, nil)
		require.NoError(t, err)
		assert.Equal(t, "@reader", result.AgentHandle)
		assert.Equal(t, []string{"bluesky:c", "bluesky:b", "bluesky:a"}, result.PostIDs)
	})

	t.Run("oldest first when configured", func(t *testing.T) {
		result, err := algo.Generate(candidates, agent, MaxPostsPerFeed,
			map[string]any{"order": "oldest_first"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bluesky:a", "bluesky:b", "bluesky:c"}, result.PostIDs)
	})

	t.Run("unknown config keys are ignored", func(t *testing.T) {
		result, err := algo.Generate(candidates, agent, MaxPostsPerFeed,
			map[string]any{"boost": 2.0})
		require.NoError(t, err)
		assert.Equal(t, []string{"bluesky:c", "bluesky:b", "bluesky:a"}, result.PostIDs)
	})

	t.Run("identical timestamps break ties by uri", func(t *testing.T) {
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		result, err := algo.Generate([]models.Post{
			testPost("x", ts),
			testPost("a", ts),
		}, agent, MaxPostsPerFeed, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"bluesky:a", "bluesky:x"}, result.PostIDs)
	})

	t.Run("input order is untouched", func(t *testing.T) {
		_, err := algo.Generate(candidates, agent, MaxPostsPerFeed, nil)
		require.NoError(t, err)
		assert.Equal(t, "a", candidates[0].URI)
	})
}

func TestChronologicalLimit(t *testing.T) {
	agent := models.Agent{Handle: "@reader"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	candidates := make([]models.Post, 30)
	for i := range candidates {
		candidates[i] = testPost(fmt.Sprintf("p%02d", i), base.Add(time.Duration(i)*time.Hour))
	}

	result, err := (&Chronological{}).Generate(candidates, agent, MaxPostsPerFeed, nil)
	require.NoError(t, err)
	require.Len(t, result.PostIDs, MaxPostsPerFeed)
	assert.Equal(t, "bluesky:p29", result.PostIDs[0])
	assert.Equal(t, "bluesky:p10", result.PostIDs[MaxPostsPerFeed-1])
}

func TestChronologicalEmptyCandidates(t *testing.T) {
	result, err := (&Chronological{}).Generate(nil, models.Agent{Handle: "@reader"}, MaxPostsPerFeed, nil)
	require.NoError(t, err)
	assert.Empty(t, result.PostIDs)
}
