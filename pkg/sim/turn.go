package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/socialsim/pkg/actiongen"
	"github.com/codeready-toolchain/socialsim/pkg/feed"
	"github.com/codeready-toolchain/socialsim/pkg/history"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// emptyFeedThreshold is the fraction of agents allowed to end up without a
// feed before the turn is treated as a systemic feed-pipeline failure.
const emptyFeedThreshold = 0.25

// TurnOrchestrator executes one turn: feeds for all agents, then actions for
// all agents, then one atomic persistence write.
type TurnOrchestrator struct {
	runs        RunStore
	feeds       *feed.Pipeline
	actions     *actiongen.Pipeline
	persistence *Persistence
	logger      *slog.Logger
}

// NewTurnOrchestrator creates a turn orchestrator.
func NewTurnOrchestrator(runs RunStore, feeds *feed.Pipeline, actions *actiongen.Pipeline, persistence *Persistence, logger *slog.Logger) *TurnOrchestrator {
	return &TurnOrchestrator{
		runs:        runs,
		feeds:       feeds,
		actions:     actions,
		persistence: persistence,
		logger:      logger.With("component", "turn_orchestrator"),
	}
}

// RunTurn executes turn turnNumber of run. Agents are processed sequentially
// in input order; feed generation for all agents completes before any action
// generation begins.
func (o *TurnOrchestrator) RunTurn(ctx context.Context, run *models.Run, turnNumber int, agents []models.Agent, bios map[string]string, hist history.Store) (*models.TurnResult, error) {
	start := time.Now()
	logger := o.logger.With("run_id", run.RunID, "turn_number", turnNumber)
	logger.Info("Starting turn", "agents", len(agents))

	// 1. The run row must still exist; a turn never executes against a run
	// that disappeared underneath it.
	if _, err := o.runs.GetRun(ctx, run.RunID); err != nil {
		return nil, err
	}

	// 2. Generate feeds for all agents.
	feeds, err := o.feeds.GenerateAll(ctx, run, turnNumber, agents)
	if err != nil {
		return nil, fmt.Errorf("feed generation failed for turn %d: %w", turnNumber, err)
	}

	// 3. Empty-feed policy.
	withoutFeeds := 0
	for _, agent := range agents {
		if _, ok := feeds[agent.Handle]; !ok {
			withoutFeeds++
		}
	}
	if len(agents) > 0 && float64(withoutFeeds)/float64(len(agents)) > emptyFeedThreshold {
		return nil, fmt.Errorf("%w: %d of %d agents in turn %d",
			ErrTooManyEmptyFeeds, withoutFeeds, len(agents), turnNumber)
	}

	// 4. Generate actions per agent, accumulating counts and persisted rows.
	totals := map[models.ActionType]int{
		models.ActionTypeLike:    0,
		models.ActionTypeComment: 0,
		models.ActionTypeFollow:  0,
	}
	var turnActions TurnActions
	for _, agent := range agents {
		feedPosts := feeds[agent.Handle]
		if len(feedPosts) == 0 {
			continue
		}

		likes, comments, follows, err := o.actions.Run(ctx, run.RunID, turnNumber, agent, bios[agent.Handle], feedPosts, hist)
		if err != nil {
			return nil, fmt.Errorf("action generation failed for agent %s in turn %d: %w",
				agent.Handle, turnNumber, err)
		}

		totals[models.ActionTypeLike] += len(likes)
		totals[models.ActionTypeComment] += len(comments)
		totals[models.ActionTypeFollow] += len(follows)
		appendTurnActions(&turnActions, run.RunID, turnNumber, agent.Handle, likes, comments, follows)
	}

	// 5. Compute metrics and persist the turn atomically.
	metricValues, err := ComputeMetrics(run.MetricKeys, totals)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	meta := models.TurnMetadata{
		RunID:        run.RunID,
		TurnNumber:   turnNumber,
		TotalActions: totals,
		CreatedAt:    now,
	}
	metrics := models.TurnMetrics{
		RunID:      run.RunID,
		TurnNumber: turnNumber,
		Metrics:    metricValues,
		CreatedAt:  now,
	}

	if err := o.persistence.WriteTurn(ctx, meta, metrics, turnActions); err != nil {
		var dup *DuplicateTurnMetadataError
		if errors.As(err, &dup) {
			logger.Info("Turn already persisted, treating as success")
		} else {
			return nil, err
		}
	}

	result := &models.TurnResult{
		TurnNumber:      turnNumber,
		TotalActions:    totals,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
	logger.Info("Turn completed",
		"total_actions", totals, "execution_time_ms", result.ExecutionTimeMS)
	return result, nil
}

func appendTurnActions(dst *TurnActions, runID string, turnNumber int, agentHandle string, likes []models.GeneratedLike, comments []models.GeneratedComment, follows []models.GeneratedFollow) {
	now := time.Now().UTC()
	for _, l := range likes {
		dst.Likes = append(dst.Likes, models.Like{
			LikeID:      uuid.NewString(),
			RunID:       runID,
			TurnNumber:  turnNumber,
			AgentHandle: agentHandle,
			PostID:      l.PostID,
			Explanation: l.Explanation,
			Generation:  l.Generation,
			CreatedAt:   now,
		})
	}
	for _, c := range comments {
		dst.Comments = append(dst.Comments, models.Comment{
			CommentID:   uuid.NewString(),
			RunID:       runID,
			TurnNumber:  turnNumber,
			AgentHandle: agentHandle,
			PostID:      c.PostID,
			Text:        c.Text,
			Explanation: c.Explanation,
			Generation:  c.Generation,
			CreatedAt:   now,
		})
	}
	for _, f := range follows {
		dst.Follows = append(dst.Follows, models.Follow{
			FollowID:    uuid.NewString(),
			RunID:       runID,
			TurnNumber:  turnNumber,
			AgentHandle: agentHandle,
			UserID:      f.UserID,
			Explanation: f.Explanation,
			Generation:  f.Generation,
			CreatedAt:   now,
		})
	}
}
