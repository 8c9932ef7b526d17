// Package models defines the domain types shared across the simulation
// engine: runs, agents, posts, feeds, turn metadata and action records.
package models

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of a simulation run.
type RunStatus string

// Run lifecycle states.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// validTransitions encodes the run lifecycle state machine. Self-transitions
// are handled separately as no-ops; terminal states allow nothing.
var validTransitions = map[RunStatus][]RunStatus{
	RunStatusRunning:   {RunStatusCompleted, RunStatusFailed},
	RunStatusCompleted: {},
	RunStatusFailed:    {},
}

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal lifecycle state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// CanTransitionTo reports whether the lifecycle state machine allows moving
// from s to target. Self-transitions are allowed (treated as no-ops by the
// orchestrator).
func (s RunStatus) CanTransitionTo(target RunStatus) bool {
	if s == target {
		return true
	}
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the non-self transitions allowed from s.
func (s RunStatus) ValidTransitions() []RunStatus {
	return validTransitions[s]
}

// Run is one end-to-end simulation, terminating in completed or failed.
type Run struct {
	RunID               string         `json:"run_id"`
	CreatedAt           time.Time      `json:"created_at"`
	TotalTurns          int            `json:"total_turns"`
	TotalAgents         int            `json:"total_agents"`
	FeedAlgorithm       string         `json:"feed_algorithm"`
	FeedAlgorithmConfig map[string]any `json:"feed_algorithm_config,omitempty"`
	MetricKeys          []string       `json:"metric_keys"`
	StartedAt           time.Time      `json:"started_at"`
	Status              RunStatus      `json:"status"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
}

// RunConfig is the transient request that parameterizes a run.
type RunConfig struct {
	NumAgents           int            `json:"num_agents"`
	NumTurns            int            `json:"num_turns"`
	FeedAlgorithm       string         `json:"feed_algorithm"`
	FeedAlgorithmConfig map[string]any `json:"feed_algorithm_config,omitempty"`
	MetricKeys          []string       `json:"metric_keys,omitempty"`
}

// DefaultMetricKeys are used when a RunConfig does not specify metric_keys.
var DefaultMetricKeys = []string{
	"total_likes",
	"total_comments",
	"total_follows",
	"total_actions",
}

// Validate checks the request before any write happens.
func (c *RunConfig) Validate() error {
	if c.NumAgents < 1 {
		return NewValidationError("num_agents", fmt.Sprintf("must be >= 1, got %d", c.NumAgents))
	}
	if c.NumTurns < 1 {
		return NewValidationError("num_turns", fmt.Sprintf("must be >= 1, got %d", c.NumTurns))
	}
	if c.FeedAlgorithm == "" {
		return NewValidationError("feed_algorithm", "required")
	}
	if c.MetricKeys != nil && len(c.MetricKeys) == 0 {
		return NewValidationError("metric_keys", "must be non-empty when provided")
	}
	return nil
}

// ResolvedMetricKeys returns the configured metric keys, defaulted when absent.
func (c *RunConfig) ResolvedMetricKeys() []string {
	if len(c.MetricKeys) > 0 {
		return c.MetricKeys
	}
	keys := make([]string, len(DefaultMetricKeys))
	copy(keys, DefaultMetricKeys)
	return keys
}
