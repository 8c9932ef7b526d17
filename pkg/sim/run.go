package sim

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/socialsim/pkg/history"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// RunOrchestrator turns a RunConfig into a durable run in a terminal state,
// or fails explicitly.
type RunOrchestrator struct {
	runs        RunStore
	agents      AgentStore
	factory     AgentFactory
	turns       *TurnOrchestrator
	lifecycle   *Lifecycle
	persistence *Persistence
	logger      *slog.Logger
}

// NewRunOrchestrator creates a run orchestrator.
func NewRunOrchestrator(runs RunStore, agents AgentStore, factory AgentFactory, turns *TurnOrchestrator, lifecycle *Lifecycle, persistence *Persistence, logger *slog.Logger) *RunOrchestrator {
	return &RunOrchestrator{
		runs:        runs,
		agents:      agents,
		factory:     factory,
		turns:       turns,
		lifecycle:   lifecycle,
		persistence: persistence,
		logger:      logger.With("component", "run_orchestrator"),
	}
}

// ExecuteRun drives a full simulation run. Turns executed before a failure
// stay committed; on any failure after creation the run transitions to FAILED
// (best effort) and the original cause is chained in the returned error.
func (o *RunOrchestrator) ExecuteRun(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	run, err := o.CreateRun(ctx, config)
	if err != nil {
		return nil, err
	}
	return run, o.Execute(ctx, run, config)
}

// CreateRun validates the config and creates the run row in RUNNING state.
// On any failure here no run_id was assigned.
func (o *RunOrchestrator) CreateRun(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	run, err := o.runs.CreateRun(ctx, config)
	if err != nil {
		return nil, &SimulationRunFailure{Cause: err}
	}
	o.logger.Info("Run created",
		"run_id", run.RunID, "total_turns", run.TotalTurns,
		"total_agents", run.TotalAgents, "feed_algorithm", run.FeedAlgorithm)
	return run, nil
}

// Execute drives an already-created run through its turn loop to a terminal
// state.
func (o *RunOrchestrator) Execute(ctx context.Context, run *models.Run, config models.RunConfig) error {
	logger := o.logger.With("run_id", run.RunID)

	// 2. Materialize the agent population.
	agents, err := o.factory.Agents(ctx, config.NumAgents)
	if err != nil {
		return o.failRun(ctx, run, err)
	}
	bios, err := LoadBios(ctx, o.agents, agents)
	if err != nil {
		return o.failRun(ctx, run, err)
	}

	// 3. Fresh history store scoped to this run.
	hist := history.NewInMemoryStore(run.RunID)

	// 4. Drive the turn loop. Cancellation granularity is between turns.
	runTotals := map[models.ActionType]int{
		models.ActionTypeLike:    0,
		models.ActionTypeComment: 0,
		models.ActionTypeFollow:  0,
	}
	for turnNumber := 0; turnNumber < run.TotalTurns; turnNumber++ {
		if err := ctx.Err(); err != nil {
			return o.failRun(ctx, run, err)
		}
		result, err := o.turns.RunTurn(ctx, run, turnNumber, agents, bios, hist)
		if err != nil {
			return o.failRun(ctx, run, err)
		}
		for action, n := range result.TotalActions {
			runTotals[action] += n
		}
	}

	// 5. Final metrics plus the COMPLETED transition, atomically.
	metricValues, err := ComputeMetrics(run.MetricKeys, runTotals)
	if err != nil {
		return o.failRun(ctx, run, err)
	}
	runMetrics := models.RunMetrics{
		RunID:   run.RunID,
		Metrics: metricValues,
	}
	if err := o.persistence.WriteRun(ctx, run, runMetrics); err != nil {
		return o.failRun(ctx, run, err)
	}

	logger.Info("Run completed", "metrics", metricValues)
	return nil
}

// failRun transitions the run to FAILED best-effort and wraps the original
// cause. A failed transition is logged but never masks the cause.
func (o *RunOrchestrator) failRun(ctx context.Context, run *models.Run, cause error) error {
	if err := o.lifecycle.UpdateRunStatus(ctx, run, models.RunStatusFailed); err != nil {
		o.logger.Error("Failed to transition run to FAILED",
			"run_id", run.RunID, "error", err)
	}
	return &SimulationRunFailure{RunID: run.RunID, Cause: cause}
}
