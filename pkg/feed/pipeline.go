package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// PostReader is the post-corpus port the pipeline reads from.
type PostReader interface {
	ListAllFeedPosts(ctx context.Context) ([]models.Post, error)
	ReadFeedPostsByIDs(ctx context.Context, postIDs []string) ([]models.Post, error)
}

// FeedStore is the generated-feed port the pipeline writes to.
type FeedStore interface {
	WriteGeneratedFeed(ctx context.Context, feed models.GeneratedFeed) (*models.GeneratedFeed, error)
	SeenPostIDs(ctx context.Context, runID, agentHandle string) (map[string]struct{}, error)
}

// Pipeline generates, persists and hydrates per-agent feeds for one turn.
type Pipeline struct {
	posts    PostReader
	feeds    FeedStore
	registry *Registry
	logger   *slog.Logger
}

// NewPipeline creates a feed pipeline.
func NewPipeline(posts PostReader, feeds FeedStore, registry *Registry, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		posts:    posts,
		feeds:    feeds,
		registry: registry,
		logger:   logger.With("component", "feed_pipeline"),
	}
}

// GenerateAll produces and persists a feed for every agent, then hydrates all
// feeds with a single batch post read. The result maps agent handle to the
// hydrated posts; an agent whose feed generation failed has no entry, which
// the turn orchestrator counts against the empty-feed threshold.
func (p *Pipeline) GenerateAll(ctx context.Context, run *models.Run, turnNumber int, agents []models.Agent) (map[string][]models.Post, error) {
	algo, err := p.registry.Get(run.FeedAlgorithm)
	if err != nil {
		return nil, err
	}

	// 1. Load the full candidate corpus once per turn.
	// TODO: replace the full-corpus scan with a windowed candidate query once
	// the corpus outgrows a single read.
	corpus, err := p.posts.ListAllFeedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate posts: %w", err)
	}

	logger := p.logger.With("run_id", run.RunID, "turn_number", turnNumber)

	// 2. Generate and persist each agent's feed.
	feedPostIDs := make(map[string][]string, len(agents))
	for _, agent := range agents {
		postIDs, err := p.generateForAgent(ctx, algo, run, turnNumber, agent, corpus)
		if err != nil {
			logger.Warn("Feed generation failed for agent",
				"agent_handle", agent.Handle, "error", err)
			continue
		}
		feedPostIDs[agent.Handle] = postIDs
	}

	// 3. Hydrate all feeds with one batch read.
	return p.hydrate(ctx, logger, feedPostIDs)
}

func (p *Pipeline) generateForAgent(ctx context.Context, algo Algorithm, run *models.Run, turnNumber int, agent models.Agent, corpus []models.Post) ([]string, error) {
	seen, err := p.feeds.SeenPostIDs(ctx, run.RunID, agent.Handle)
	if err != nil {
		return nil, err
	}

	// Filter out posts already served to this agent and the agent's own posts.
	candidates := make([]models.Post, 0, len(corpus))
	for _, post := range corpus {
		if _, ok := seen[post.PostID]; ok {
			continue
		}
		if models.NormalizeHandle(post.AuthorHandle) == agent.Handle {
			continue
		}
		candidates = append(candidates, post)
	}

	result, err := algo.Generate(candidates, agent, MaxPostsPerFeed, run.FeedAlgorithmConfig)
	if err != nil {
		return nil, fmt.Errorf("feed algorithm %q failed: %w", run.FeedAlgorithm, err)
	}
	postIDs := result.PostIDs
	if len(postIDs) > MaxPostsPerFeed {
		postIDs = postIDs[:MaxPostsPerFeed]
	}
	if postIDs == nil {
		postIDs = []string{}
	}

	_, err = p.feeds.WriteGeneratedFeed(ctx, models.GeneratedFeed{
		FeedID:      uuid.NewString(),
		RunID:       run.RunID,
		TurnNumber:  turnNumber,
		AgentHandle: agent.Handle,
		PostIDs:     postIDs,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return postIDs, nil
}

func (p *Pipeline) hydrate(ctx context.Context, logger *slog.Logger, feedPostIDs map[string][]string) (map[string][]models.Post, error) {
	unionSeen := make(map[string]struct{})
	var union []string
	for _, ids := range feedPostIDs {
		for _, id := range ids {
			if _, ok := unionSeen[id]; !ok {
				unionSeen[id] = struct{}{}
				union = append(union, id)
			}
		}
	}

	posts, err := p.posts.ReadFeedPostsByIDs(ctx, union)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate feed posts: %w", err)
	}
	byID := make(map[string]models.Post, len(posts))
	for _, post := range posts {
		byID[post.PostID] = post
	}

	feeds := make(map[string][]models.Post, len(feedPostIDs))
	for handle, ids := range feedPostIDs {
		hydrated := make([]models.Post, 0, len(ids))
		var missing []string
		for _, id := range ids {
			post, ok := byID[id]
			if !ok {
				missing = append(missing, id)
				continue
			}
			hydrated = append(hydrated, post)
		}
		if len(missing) > 0 {
			sample := missing
			if len(sample) > 5 {
				sample = sample[:5]
			}
			logger.Warn("Feed references missing posts",
				"agent_handle", handle, "missing_count", len(missing), "missing_sample", sample)
		}
		feeds[handle] = hydrated
	}
	return feeds, nil
}
