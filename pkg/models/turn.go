package models

import "time"

// ActionType identifies one of the three agent action kinds. The string form
// is used as the key in persisted total_actions JSON.
type ActionType string

// Action types.
const (
	ActionTypeLike    ActionType = "like"
	ActionTypeComment ActionType = "comment"
	ActionTypeFollow  ActionType = "follow"
)

// AllActionTypes lists the action types in recording order
// (like, then comment, then follow).
var AllActionTypes = []ActionType{ActionTypeLike, ActionTypeComment, ActionTypeFollow}

// GeneratedFeed is the ordered post selection for one agent in one turn.
// Composite identity is (agent_handle, run_id, turn_number); writes replace.
type GeneratedFeed struct {
	FeedID      string    `json:"feed_id"`
	RunID       string    `json:"run_id"`
	TurnNumber  int       `json:"turn_number"`
	AgentHandle string    `json:"agent_handle"`
	PostIDs     []string  `json:"post_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// TurnMetadata summarizes one committed turn. Written exactly once per
// (run_id, turn_number).
type TurnMetadata struct {
	RunID        string             `json:"run_id"`
	TurnNumber   int                `json:"turn_number"`
	TotalActions map[ActionType]int `json:"total_actions"`
	CreatedAt    time.Time          `json:"created_at"`
}

// TurnMetrics holds the configured metric values for one turn. Written in
// the same transaction as the paired TurnMetadata.
type TurnMetrics struct {
	RunID      string             `json:"run_id"`
	TurnNumber int                `json:"turn_number"`
	Metrics    map[string]float64 `json:"metrics"`
	CreatedAt  time.Time          `json:"created_at"`
}

// RunMetrics holds the final metric values for a completed run.
type RunMetrics struct {
	RunID     string             `json:"run_id"`
	Metrics   map[string]float64 `json:"metrics"`
	CreatedAt time.Time          `json:"created_at"`
}

// TurnResult is the in-memory outcome of one executed turn.
type TurnResult struct {
	TurnNumber      int                `json:"turn_number"`
	TotalActions    map[ActionType]int `json:"total_actions"`
	ExecutionTimeMS int64              `json:"execution_time_ms"`
}

// TurnData is the read-side hydration of one turn: per-agent posts and
// per-agent generated actions.
type TurnData struct {
	RunID      string                       `json:"run_id"`
	TurnNumber int                          `json:"turn_number"`
	Feeds      map[string][]Post            `json:"feeds"`
	Actions    map[string][]GeneratedAction `json:"actions"`
}
