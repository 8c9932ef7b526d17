package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

func TestComputeMetrics(t *testing.T) {
	totals := map[models.ActionType]int{
		models.ActionTypeLike:    5,
		models.ActionTypeComment: 2,
		models.ActionTypeFollow:  1,
	}

	t.Run("all known keys", func(t *testing.T) {
		metrics, err := ComputeMetrics(models.DefaultMetricKeys, totals)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{
			"total_likes":    5,
			"total_comments": 2,
			"total_follows":  1,
			"total_actions":  8,
		}, metrics)
	})

	t.Run("subset of keys", func(t *testing.T) {
		metrics, err := ComputeMetrics([]string{"total_likes"}, totals)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"total_likes": 5}, metrics)
	})

	t.Run("zero totals compute to zero", func(t *testing.T) {
		metrics, err := ComputeMetrics(models.DefaultMetricKeys, map[models.ActionType]int{})
		require.NoError(t, err)
		assert.Equal(t, float64(0), metrics["total_actions"])
	})

	t.Run("unknown key fails before any value is produced", func(t *testing.T) {
		_, err := ComputeMetrics([]string{"total_likes", "sentiment_score"}, totals)
		require.Error(t, err)
		var compErr *MetricsComputationError
		require.True(t, errors.As(err, &compErr))
		assert.Equal(t, "sentiment_score", compErr.Key)
	})
}

func TestKnownMetricKey(t *testing.T) {
	for _, key := range models.DefaultMetricKeys {
		assert.True(t, KnownMetricKey(key), key)
	}
	assert.False(t, KnownMetricKey("engagement_rate"))
}
