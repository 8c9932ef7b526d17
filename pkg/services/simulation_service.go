package services

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
)

// SimulationService is the execution entry point for runs. StartRun returns
// as soon as the run row exists; the turn loop continues in the background.
type SimulationService struct {
	orchestrator *sim.RunOrchestrator
	logger       *slog.Logger
}

// NewSimulationService creates a simulation service.
func NewSimulationService(orchestrator *sim.RunOrchestrator, logger *slog.Logger) *SimulationService {
	return &SimulationService{
		orchestrator: orchestrator,
		logger:       logger.With("component", "simulation_service"),
	}
}

// StartRun validates the config, creates the run and executes it in the
// background. The background execution is detached from the request context
// so an aborted request does not fail the run.
func (s *SimulationService) StartRun(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	run, err := s.orchestrator.CreateRun(ctx, config)
	if err != nil {
		return nil, err
	}

	// The goroutine works on its own copy; the caller's snapshot stays at
	// RUNNING while execution mutates lifecycle state.
	background := *run
	execCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.orchestrator.Execute(execCtx, &background, config); err != nil {
			s.logger.Error("Simulation run failed", "run_id", background.RunID, "error", err)
		}
	}()
	return run, nil
}

// RunToCompletion executes a run synchronously, for CLI-style callers.
func (s *SimulationService) RunToCompletion(ctx context.Context, config models.RunConfig) (*models.Run, error) {
	return s.orchestrator.ExecuteRun(ctx, config)
}
