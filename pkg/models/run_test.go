package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RunStatus
		to      RunStatus
		allowed bool
	}{
		{"running to completed", RunStatusRunning, RunStatusCompleted, true},
		{"running to failed", RunStatusRunning, RunStatusFailed, true},
		{"running to running is a no-op", RunStatusRunning, RunStatusRunning, true},
		{"completed to completed is a no-op", RunStatusCompleted, RunStatusCompleted, true},
		{"failed to failed is a no-op", RunStatusFailed, RunStatusFailed, true},
		{"completed to running", RunStatusCompleted, RunStatusRunning, false},
		{"completed to failed", RunStatusCompleted, RunStatusFailed, false},
		{"failed to running", RunStatusFailed, RunStatusRunning, false},
		{"failed to completed", RunStatusFailed, RunStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusFailed.Terminal())

	// Terminal states allow no outgoing transitions.
	assert.Empty(t, RunStatusCompleted.ValidTransitions())
	assert.Empty(t, RunStatusFailed.ValidTransitions())
}

func TestRunStatusValid(t *testing.T) {
	assert.True(t, RunStatusRunning.Valid())
	assert.False(t, RunStatus("paused").Valid())
}

func TestRunConfigValidate(t *testing.T) {
	valid := RunConfig{NumAgents: 2, NumTurns: 3, FeedAlgorithm: "chronological"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{"zero agents", func(c *RunConfig) { c.NumAgents = 0 }, "num_agents"},
		{"negative agents", func(c *RunConfig) { c.NumAgents = -1 }, "num_agents"},
		{"zero turns", func(c *RunConfig) { c.NumTurns = 0 }, "num_turns"},
		{"empty feed algorithm", func(c *RunConfig) { c.FeedAlgorithm = "" }, "feed_algorithm"},
		{"empty metric keys", func(c *RunConfig) { c.MetricKeys = []string{} }, "metric_keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestRunConfigResolvedMetricKeys(t *testing.T) {
	t.Run("defaults when absent", func(t *testing.T) {
		cfg := RunConfig{NumAgents: 1, NumTurns: 1, FeedAlgorithm: "chronological"}
		assert.Equal(t, DefaultMetricKeys, cfg.ResolvedMetricKeys())
	})

	t.Run("explicit keys win", func(t *testing.T) {
		cfg := RunConfig{MetricKeys: []string{"total_likes"}}
		assert.Equal(t, []string{"total_likes"}, cfg.ResolvedMetricKeys())
	})

	t.Run("returned defaults are a copy", func(t *testing.T) {
		cfg := RunConfig{}
		keys := cfg.ResolvedMetricKeys()
		keys[0] = "mutated"
		assert.Equal(t, "total_likes", DefaultMetricKeys[0])
	})
}
