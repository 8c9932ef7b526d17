package actiongen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/socialsim/pkg/history"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// DefaultMaxActions bounds how many actions of each type one agent can take
// per turn when configuration does not say otherwise.
const DefaultMaxActions = 3

// AlgorithmSelection names the algorithm to run per action type, resolved at
// startup from explicit arguments, configuration and fallbacks.
type AlgorithmSelection map[models.ActionType]string

// Pipeline runs the three action generators for one agent in one turn,
// validates the output and records accepted targets into the history store.
type Pipeline struct {
	registry   *Registry
	algorithms AlgorithmSelection
	maxActions int
	config     map[string]any
	logger     *slog.Logger
}

// NewPipeline creates an action pipeline. maxActions <= 0 uses
// DefaultMaxActions.
func NewPipeline(registry *Registry, algorithms AlgorithmSelection, maxActions int, config map[string]any, logger *slog.Logger) *Pipeline {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	return &Pipeline{
		registry:   registry,
		algorithms: algorithms,
		maxActions: maxActions,
		config:     config,
		logger:     logger.With("component", "action_pipeline"),
	}
}

// Run generates, validates and records actions for one agent. feedPosts is
// the agent's hydrated feed for this turn. On an invariant violation the
// error propagates and the caller fails the turn and the run.
func (p *Pipeline) Run(ctx context.Context, runID string, turnNumber int, agent models.Agent, personaBio string, feedPosts []models.Post, hist history.Store) ([]models.GeneratedLike, []models.GeneratedComment, []models.GeneratedFollow, error) {
	logger := p.logger.With("run_id", runID, "turn_number", turnNumber, "agent_handle", agent.Handle)

	// 1. Generate per action type over history-filtered candidates.
	generated := make(map[models.ActionType][]models.GeneratedAction, len(models.AllActionTypes))
	for _, action := range models.AllActionTypes {
		candidates := p.filterCandidates(action, agent, feedPosts, hist)
		if len(candidates) == 0 {
			logger.Debug("No candidates for action", "action", string(action))
			continue
		}

		gen, err := p.registry.Get(action, p.algorithms[action])
		if err != nil {
			return nil, nil, nil, err
		}
		actions, err := gen.Generate(ctx, Request{
			RunID:      runID,
			TurnNumber: turnNumber,
			Agent:      agent,
			PersonaBio: personaBio,
			Candidates: candidates,
			MaxActions: p.maxActions,
			Config:     p.config,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		generated[action] = actions
	}

	likes, comments, follows, err := splitActions(generated)
	if err != nil {
		return nil, nil, nil, err
	}

	// 2. Validate before any history mutation.
	targets, err := Validate(agent.Handle, likes, comments, follows, hist)
	if err != nil {
		return nil, nil, nil, err
	}

	// 3. Record accepted targets, like then comment then follow.
	for _, postID := range targets.LikePostIDs {
		hist.RecordLike(agent.Handle, postID)
	}
	for _, postID := range targets.CommentPostIDs {
		hist.RecordComment(agent.Handle, postID)
	}
	for _, userID := range targets.FollowUserIDs {
		hist.RecordFollow(agent.Handle, userID)
	}

	return likes, comments, follows, nil
}

// filterCandidates drops posts the agent already acted on for this action
// type, and the agent's own posts.
func (p *Pipeline) filterCandidates(action models.ActionType, agent models.Agent, feedPosts []models.Post, hist history.Store) []models.Post {
	candidates := make([]models.Post, 0, len(feedPosts))
	for _, post := range feedPosts {
		author := models.NormalizeHandle(post.AuthorHandle)
		if author == agent.Handle {
			continue
		}
		target := post.PostID
		if action == models.ActionTypeFollow {
			target = author
		}
		if hist.Has(action, agent.Handle, target) {
			continue
		}
		candidates = append(candidates, post)
	}
	return candidates
}

func splitActions(generated map[models.ActionType][]models.GeneratedAction) ([]models.GeneratedLike, []models.GeneratedComment, []models.GeneratedFollow, error) {
	var likes []models.GeneratedLike
	var comments []models.GeneratedComment
	var follows []models.GeneratedFollow

	for _, a := range generated[models.ActionTypeLike] {
		likes = append(likes, models.GeneratedLike{
			PostID:      a.PostID,
			Explanation: models.NormalizeExplanation(a.Explanation),
			Generation:  a.Generation,
		})
	}
	for _, a := range generated[models.ActionTypeComment] {
		if a.Text == "" {
			return nil, nil, nil, fmt.Errorf("generated comment for post %s has empty text", a.PostID)
		}
		comments = append(comments, models.GeneratedComment{
			PostID:      a.PostID,
			Text:        a.Text,
			Explanation: models.NormalizeExplanation(a.Explanation),
			Generation:  a.Generation,
		})
	}
	for _, a := range generated[models.ActionTypeFollow] {
		follows = append(follows, models.GeneratedFollow{
			UserID:      a.UserID,
			Explanation: models.NormalizeExplanation(a.Explanation),
			Generation:  a.Generation,
		})
	}
	return likes, comments, follows, nil
}
