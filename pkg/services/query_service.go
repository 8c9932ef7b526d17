// Package services contains the application services exposed to external
// callers: the read-side query surface and the run execution entry point.
package services

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// RunReader is the run read port for queries.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	ListRuns(ctx context.Context) ([]models.Run, error)
	GetTurnMetadata(ctx context.Context, runID string, turnNumber int) (*models.TurnMetadata, error)
	ListTurnMetadata(ctx context.Context, runID string) ([]models.TurnMetadata, error)
}

// FeedReader is the generated-feed read port for queries.
type FeedReader interface {
	ListFeedsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.GeneratedFeed, error)
}

// PostReader is the post read port for queries.
type PostReader interface {
	ReadFeedPostsByIDs(ctx context.Context, postIDs []string) ([]models.Post, error)
}

// ActionReader is the accepted-action read port for queries.
type ActionReader interface {
	ListLikesForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Like, error)
	ListCommentsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Comment, error)
	ListFollowsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Follow, error)
}

// MetricsReader is the metrics read port for queries.
type MetricsReader interface {
	GetTurnMetrics(ctx context.Context, runID string, turnNumber int) (*models.TurnMetrics, error)
	GetRunMetrics(ctx context.Context, runID string) (*models.RunMetrics, error)
}

// QueryService is the read-only surface over persisted simulation state.
type QueryService struct {
	runs    RunReader
	feeds   FeedReader
	posts   PostReader
	actions ActionReader
	metrics MetricsReader
	logger  *slog.Logger
}

// NewQueryService creates a query service.
func NewQueryService(runs RunReader, feeds FeedReader, posts PostReader, actions ActionReader, metrics MetricsReader, logger *slog.Logger) *QueryService {
	return &QueryService{
		runs:    runs,
		feeds:   feeds,
		posts:   posts,
		actions: actions,
		metrics: metrics,
		logger:  logger.With("component", "query_service"),
	}
}

// GetRun returns a run by id.
func (s *QueryService) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	return s.runs.GetRun(ctx, runID)
}

// ListRuns returns all runs, newest first.
func (s *QueryService) ListRuns(ctx context.Context) ([]models.Run, error) {
	return s.runs.ListRuns(ctx)
}

// GetTurnMetadata returns the metadata for one turn, or nil when the turn has
// not been committed.
func (s *QueryService) GetTurnMetadata(ctx context.Context, runID string, turnNumber int) (*models.TurnMetadata, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.GetTurnMetadata(ctx, runID, turnNumber)
}

// ListTurnMetadata returns all committed turn metadata for a run, sorted
// ascending by turn number.
func (s *QueryService) ListTurnMetadata(ctx context.Context, runID string) ([]models.TurnMetadata, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.ListTurnMetadata(ctx, runID)
}

// GetRunMetrics returns the final metrics for a run, or nil when none were
// committed (for example a FAILED run). Partial per-turn metrics stay
// queryable via GetTurnMetrics.
func (s *QueryService) GetRunMetrics(ctx context.Context, runID string) (*models.RunMetrics, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.metrics.GetRunMetrics(ctx, runID)
}

// GetTurnMetrics returns the metrics for one turn, or nil when none were
// committed.
func (s *QueryService) GetTurnMetrics(ctx context.Context, runID string, turnNumber int) (*models.TurnMetrics, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.metrics.GetTurnMetrics(ctx, runID, turnNumber)
}

// GetTurnData hydrates one turn: per-agent feed posts via a single batch post
// read, and per-agent generated actions merged from the three action tables.
// Returns nil when no feeds exist for the turn; a missing run is an error.
func (s *QueryService) GetTurnData(ctx context.Context, runID string, turnNumber int) (*models.TurnData, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	feeds, err := s.feeds.ListFeedsForTurn(ctx, runID, turnNumber)
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	// One batch read over the union of post ids across all feeds.
	seen := make(map[string]struct{})
	var union []string
	for _, f := range feeds {
		for _, id := range f.PostIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				union = append(union, id)
			}
		}
	}
	posts, err := s.posts.ReadFeedPostsByIDs(ctx, union)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.PostID] = p
	}

	data := &models.TurnData{
		RunID:      runID,
		TurnNumber: turnNumber,
		Feeds:      make(map[string][]models.Post, len(feeds)),
		Actions:    make(map[string][]models.GeneratedAction),
	}
	for _, f := range feeds {
		hydrated := make([]models.Post, 0, len(f.PostIDs))
		for _, id := range f.PostIDs {
			if p, ok := byID[id]; ok {
				hydrated = append(hydrated, p)
			}
		}
		data.Feeds[f.AgentHandle] = hydrated
	}

	if err := s.hydrateActions(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}

// hydrateActions merges the per-action reads for the turn, preserving
// like-then-comment-then-follow order per agent and normalizing explanations.
func (s *QueryService) hydrateActions(ctx context.Context, data *models.TurnData) error {
	likes, err := s.actions.ListLikesForTurn(ctx, data.RunID, data.TurnNumber)
	if err != nil {
		return err
	}
	comments, err := s.actions.ListCommentsForTurn(ctx, data.RunID, data.TurnNumber)
	if err != nil {
		return err
	}
	follows, err := s.actions.ListFollowsForTurn(ctx, data.RunID, data.TurnNumber)
	if err != nil {
		return err
	}

	for _, l := range likes {
		data.Actions[l.AgentHandle] = append(data.Actions[l.AgentHandle], l.Generated().Action())
	}
	for _, c := range comments {
		data.Actions[c.AgentHandle] = append(data.Actions[c.AgentHandle], c.Generated().Action())
	}
	for _, f := range follows {
		data.Actions[f.AgentHandle] = append(data.Actions[f.AgentHandle], f.Generated().Action())
	}
	return nil
}
