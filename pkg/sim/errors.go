// Package sim contains the run and turn orchestrators: the run lifecycle
// state machine, the per-turn execution loop, atomic turn persistence and
// the domain error taxonomy.
package sim

import (
	"errors"
	"fmt"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Sentinel errors surfaced across layer boundaries.
var (
	// ErrRunNotFound is returned when a lookup by run_id misses.
	ErrRunNotFound = errors.New("run not found")

	// ErrTooManyEmptyFeeds signals a systemic feed-pipeline failure: more
	// than the allowed share of agents received no feed this turn.
	ErrTooManyEmptyFeeds = errors.New("too many agents without feeds")
)

// InvalidTransitionError is raised when the run lifecycle state machine
// rejects a transition. Terminal states allow nothing; it is never
// self-healing.
type InvalidTransitionError struct {
	Current models.RunStatus
	Target  models.RunStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid run status transition %s -> %s (valid transitions: %v)",
		e.Current, e.Target, e.Current.ValidTransitions())
}

// RunCreationError wraps a failure to create the run row; no run_id was
// assigned.
type RunCreationError struct {
	Cause error
}

func (e *RunCreationError) Error() string {
	return fmt.Sprintf("failed to create run: %v", e.Cause)
}

func (e *RunCreationError) Unwrap() error { return e.Cause }

// RunStatusUpdateError wraps a status write that failed after retries.
type RunStatusUpdateError struct {
	RunID  string
	Target models.RunStatus
	Cause  error
}

func (e *RunStatusUpdateError) Error() string {
	return fmt.Sprintf("failed to update run %s status to %s: %v", e.RunID, e.Target, e.Cause)
}

func (e *RunStatusUpdateError) Unwrap() error { return e.Cause }

// DuplicateTurnMetadataError is raised when turn metadata for a
// (run_id, turn_number) pair already exists. The turn orchestrator absorbs
// it as idempotent success.
type DuplicateTurnMetadataError struct {
	RunID      string
	TurnNumber int
}

func (e *DuplicateTurnMetadataError) Error() string {
	return fmt.Sprintf("turn metadata already exists for run %s turn %d", e.RunID, e.TurnNumber)
}

// InsufficientAgentsError is raised when the agent factory cannot
// materialize the requested population.
type InsufficientAgentsError struct {
	Requested int
	Available int
}

func (e *InsufficientAgentsError) Error() string {
	return fmt.Sprintf("insufficient agents: requested %d, available %d", e.Requested, e.Available)
}

// MetricsComputationError is raised when a configured metric key cannot be
// computed; it fails the run before any metric write.
type MetricsComputationError struct {
	Key string
}

func (e *MetricsComputationError) Error() string {
	return fmt.Sprintf("cannot compute metric %q: unknown metric key", e.Key)
}

// SimulationRunFailure wraps any failure during a run after creation. RunID
// is empty when run creation itself failed. The original cause is chained
// and never masked by failures in the error path.
type SimulationRunFailure struct {
	RunID string
	Cause error
}

func (e *SimulationRunFailure) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("simulation run failed before creation: %v", e.Cause)
	}
	return fmt.Sprintf("simulation run %s failed: %v", e.RunID, e.Cause)
}

func (e *SimulationRunFailure) Unwrap() error { return e.Cause }
