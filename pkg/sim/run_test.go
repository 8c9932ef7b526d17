package sim_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/actiongen"
	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/feed"
	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/repository"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
	"github.com/codeready-toolchain/socialsim/test/util"
)

// engine wires the full simulation stack over a temp SQLite database.
type engine struct {
	runs         *repository.Runs
	agents       *repository.Agents
	posts        *repository.Posts
	feeds        *repository.Feeds
	actions      *repository.Actions
	metrics      *repository.Metrics
	persistence  *sim.Persistence
	orchestrator *sim.RunOrchestrator
}

func newEngine(t *testing.T, registry *actiongen.Registry) *engine {
	t.Helper()
	client := util.SetupTestDatabase(t)
	db := client.DB()
	logger := slog.Default()

	e := &engine{
		runs:    repository.NewRuns(db),
		agents:  repository.NewAgents(db),
		posts:   repository.NewPosts(db),
		feeds:   repository.NewFeeds(db),
		actions: repository.NewActions(db),
		metrics: repository.NewMetrics(db),
	}

	selection := actiongen.AlgorithmSelection{
		models.ActionTypeLike:    "deterministic",
		models.ActionTypeComment: "deterministic",
		models.ActionTypeFollow:  "deterministic",
	}
	feedPipeline := feed.NewPipeline(e.posts, e.feeds, feed.NewRegistry(), logger)
	actionPipeline := actiongen.NewPipeline(registry, selection, 3, nil, logger)
	e.persistence = sim.NewPersistence(
		database.NewTxProvider(db), e.runs, e.metrics, e.actions, logger)
	lifecycle := sim.NewLifecycle(e.runs, logger)
	turns := sim.NewTurnOrchestrator(e.runs, feedPipeline, actionPipeline, e.persistence, logger)
	e.orchestrator = sim.NewRunOrchestrator(
		e.runs, e.agents, sim.NewStoredAgentFactory(e.agents), turns, lifecycle, e.persistence, logger)
	return e
}

func defaultRegistry() *actiongen.Registry {
	registry := actiongen.NewRegistry()
	for _, action := range models.AllActionTypes {
		registry.Register(action, "deterministic", actiongen.NewDeterministic(action))
	}
	return registry
}

func seedAgents(t *testing.T, e *engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.agents.CreateAgent(context.Background(), models.Agent{
			Handle:        fmt.Sprintf("@agent%02d", i),
			DisplayName:   fmt.Sprintf("Agent %02d", i),
			PersonaSource: models.PersonaSourceUserGenerated,
		})
		require.NoError(t, err)
	}
}

func seedPosts(t *testing.T, e *engine, n int, author string) {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := e.posts.CreatePost(context.Background(), models.Post{
			Source:       models.PostSourceBluesky,
			URI:          fmt.Sprintf("at://%s/post/%03d", author, i),
			AuthorHandle: author,
			Text:         fmt.Sprintf("post %03d", i),
			LikeCount:    i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func runConfig(agents, turns int) models.RunConfig {
	return models.RunConfig{
		NumAgents:     agents,
		NumTurns:      turns,
		FeedAlgorithm: "chronological",
	}
}

func TestExecuteRunCompletes(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, defaultRegistry())
	seedAgents(t, e, 2)
	// Enough posts that turn 1 still has unseen candidates after turn 0
	// serves 20 per agent.
	seedPosts(t, e, 50, "@outsider")

	run, err := e.orchestrator.ExecuteRun(ctx, runConfig(2, 2))
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)

	stored, err := e.runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)

	// Both turns committed, with metadata and metrics in lockstep.
	meta, err := e.runs.ListTurnMetadata(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	for i, m := range meta {
		assert.Equal(t, i, m.TurnNumber)
		turnMetrics, err := e.metrics.GetTurnMetrics(ctx, run.RunID, m.TurnNumber)
		require.NoError(t, err)
		require.NotNil(t, turnMetrics)
		assert.Equal(t, float64(m.TotalActions[models.ActionTypeLike]), turnMetrics.Metrics["total_likes"])
	}

	// 2 agents x 3 likes per turn x 2 turns. Follows happen only in turn 0:
	// afterwards the single author is already followed.
	runMetrics, err := e.metrics.GetRunMetrics(ctx, run.RunID)
	require.NoError(t, err)
	require.NotNil(t, runMetrics)
	assert.Equal(t, float64(12), runMetrics.Metrics["total_likes"])
	assert.Equal(t, float64(12), runMetrics.Metrics["total_comments"])
	assert.Equal(t, float64(2), runMetrics.Metrics["total_follows"])
	assert.Equal(t, float64(26), runMetrics.Metrics["total_actions"])

	// Persisted likes never repeat a (agent, post) pair across turns.
	seen := make(map[string]struct{})
	for turn := 0; turn < 2; turn++ {
		likes, err := e.actions.ListLikesForTurn(ctx, run.RunID, turn)
		require.NoError(t, err)
		for _, like := range likes {
			key := like.AgentHandle + "|" + like.PostID
			_, dup := seen[key]
			require.False(t, dup, "duplicate like %s", key)
			seen[key] = struct{}{}
		}
	}
}

func TestExecuteRunEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, defaultRegistry())
	seedAgents(t, e, 2)

	run, err := e.orchestrator.ExecuteRun(ctx, runConfig(2, 2))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	// Every agent still gets a persisted feed, with an empty selection.
	feeds, err := e.feeds.ListFeedsForTurn(ctx, run.RunID, 0)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	for _, f := range feeds {
		assert.Empty(t, f.PostIDs)
	}

	runMetrics, err := e.metrics.GetRunMetrics(ctx, run.RunID)
	require.NoError(t, err)
	require.NotNil(t, runMetrics)
	assert.Equal(t, float64(0), runMetrics.Metrics["total_actions"])
}

func TestExecuteRunInsufficientAgents(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, defaultRegistry())
	seedAgents(t, e, 1)

	run, err := e.orchestrator.ExecuteRun(ctx, runConfig(2, 1))
	require.Error(t, err)

	var failure *sim.SimulationRunFailure
	require.True(t, errors.As(err, &failure))
	var insufficient *sim.InsufficientAgentsError
	assert.True(t, errors.As(err, &insufficient))

	// The run row exists and is terminally failed.
	require.NotNil(t, run)
	stored, err := e.runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestExecuteRunInvalidConfig(t *testing.T) {
	e := newEngine(t, defaultRegistry())

	_, err := e.orchestrator.ExecuteRun(context.Background(), runConfig(0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	// Nothing was written.
	runs, err := e.runs.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// duplicatingGenerator emits the same target twice starting at a given turn.
type duplicatingGenerator struct {
	action    models.ActionType
	fromTurn  int
	delegated actiongen.Generator
}

func (g *duplicatingGenerator) ActionType() models.ActionType { return g.action }

func (g *duplicatingGenerator) Generate(ctx context.Context, req actiongen.Request) ([]models.GeneratedAction, error) {
	if req.TurnNumber < g.fromTurn {
		return g.delegated.Generate(ctx, req)
	}
	target := req.Candidates[0].PostID
	action := models.GeneratedAction{
		Type: g.action, PostID: target, Explanation: "picked twice",
		Generation: models.GenerationMetadata{CreatedAt: time.Now().UTC()},
	}
	return []models.GeneratedAction{action, action}, nil
}

func TestExecuteRunInvariantViolationFailsRun(t *testing.T) {
	ctx := context.Background()
	registry := defaultRegistry()
	registry.Register(models.ActionTypeLike, "deterministic", &duplicatingGenerator{
		action:    models.ActionTypeLike,
		fromTurn:  1,
		delegated: actiongen.NewDeterministic(models.ActionTypeLike),
	})

	e := newEngine(t, registry)
	seedAgents(t, e, 2)
	seedPosts(t, e, 50, "@outsider")

	run, err := e.orchestrator.ExecuteRun(ctx, runConfig(2, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, actiongen.ErrInvariantViolation)

	stored, err := e.runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)

	// Turn 0 stays committed; the violating turn left no rows behind.
	meta, err := e.runs.ListTurnMetadata(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, 0, meta[0].TurnNumber)

	likes, err := e.actions.ListLikesForTurn(ctx, run.RunID, 1)
	require.NoError(t, err)
	assert.Empty(t, likes)
}

// replayingGenerator likes the same fixed post every turn.
type replayingGenerator struct {
	target string
}

func (g *replayingGenerator) ActionType() models.ActionType { return models.ActionTypeLike }

func (g *replayingGenerator) Generate(ctx context.Context, req actiongen.Request) ([]models.GeneratedAction, error) {
	return []models.GeneratedAction{{
		Type: models.ActionTypeLike, PostID: g.target, Explanation: "always this one",
		Generation: models.GenerationMetadata{CreatedAt: time.Now().UTC()},
	}}, nil
}

func TestExecuteRunReplayAcrossTurnsFailsRun(t *testing.T) {
	ctx := context.Background()
	registry := defaultRegistry()
	registry.Register(models.ActionTypeLike, "deterministic",
		&replayingGenerator{target: "bluesky:at://@outsider/post/000"})

	e := newEngine(t, registry)
	seedAgents(t, e, 2)
	seedPosts(t, e, 50, "@outsider")

	run, err := e.orchestrator.ExecuteRun(ctx, runConfig(2, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, actiongen.ErrInvariantViolation)

	stored, err := e.runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}
