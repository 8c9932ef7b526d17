// Package bootstrap seeds the embedded agent and post fixtures into a fresh
// database, guarded by a content digest so repeated startups do not
// double-insert.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/repository"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// fixtureDigestKey is the seed_meta key holding the digest of the last
// applied fixture set.
const fixtureDigestKey = "fixture_digest"

var fixtureFiles = []string{"fixtures/agents.json", "fixtures/posts.json"}

type agentFixture struct {
	Handle        string `json:"handle"`
	DisplayName   string `json:"display_name"`
	PersonaSource string `json:"persona_source"`
	Bio           struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	} `json:"bio"`
}

type postFixture struct {
	Source            string    `json:"source"`
	URI               string    `json:"uri"`
	AuthorHandle      string    `json:"author_handle"`
	AuthorDisplayName string    `json:"author_display_name"`
	Text              string    `json:"text"`
	LikeCount         int       `json:"like_count"`
	BookmarkCount     int       `json:"bookmark_count"`
	QuoteCount        int       `json:"quote_count"`
	ReplyCount        int       `json:"reply_count"`
	RepostCount       int       `json:"repost_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// Seeder writes the embedded fixtures through the repositories.
type Seeder struct {
	agents *repository.Agents
	posts  *repository.Posts
	meta   *repository.SeedMeta
	logger *slog.Logger
}

// NewSeeder creates a fixture seeder.
func NewSeeder(agents *repository.Agents, posts *repository.Posts, meta *repository.SeedMeta, logger *slog.Logger) *Seeder {
	return &Seeder{
		agents: agents,
		posts:  posts,
		meta:   meta,
		logger: logger.With("component", "bootstrap"),
	}
}

// Seed applies the embedded fixtures once. A matching stored digest skips the
// work; a mismatched digest means the fixtures changed after an earlier seed,
// which is logged and skipped rather than merged.
func (s *Seeder) Seed(ctx context.Context) error {
	digest, err := fixtureDigest()
	if err != nil {
		return err
	}

	stored, err := s.meta.Get(ctx, fixtureDigestKey)
	if err != nil {
		return err
	}
	switch stored {
	case "":
		// fresh database
	case digest:
		s.logger.Debug("Fixtures already seeded", "digest", digest)
		return nil
	default:
		s.logger.Warn("Fixture digest changed since last seed, leaving existing data untouched",
			"stored", stored, "current", digest)
		return nil
	}

	agentCount, err := s.seedAgents(ctx)
	if err != nil {
		return err
	}
	postCount, err := s.seedPosts(ctx)
	if err != nil {
		return err
	}
	if err := s.meta.Set(ctx, fixtureDigestKey, digest); err != nil {
		return err
	}

	s.logger.Info("Seeded fixtures", "agents", agentCount, "posts", postCount, "digest", digest)
	return nil
}

func (s *Seeder) seedAgents(ctx context.Context) (int, error) {
	data, err := fixtureFS.ReadFile("fixtures/agents.json")
	if err != nil {
		return 0, fmt.Errorf("failed to read agent fixtures: %w", err)
	}
	var fixtures []agentFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("invalid agent fixtures: %w", err)
	}

	count := 0
	for _, f := range fixtures {
		agent, err := s.agents.CreateAgent(ctx, models.Agent{
			Handle:        f.Handle,
			DisplayName:   f.DisplayName,
			PersonaSource: models.PersonaSource(f.PersonaSource),
		})
		if err != nil {
			if errors.Is(err, repository.ErrHandleAlreadyExists) {
				continue
			}
			return count, err
		}
		if f.Bio.Text != "" {
			_, err = s.agents.AddBio(ctx, models.AgentBio{
				AgentID: agent.AgentID,
				Text:    f.Bio.Text,
				Source:  models.BioSource(f.Bio.Source),
			})
			if err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}

func (s *Seeder) seedPosts(ctx context.Context) (int, error) {
	data, err := fixtureFS.ReadFile("fixtures/posts.json")
	if err != nil {
		return 0, fmt.Errorf("failed to read post fixtures: %w", err)
	}
	var fixtures []postFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("invalid post fixtures: %w", err)
	}

	count := 0
	for _, f := range fixtures {
		_, err := s.posts.CreatePost(ctx, models.Post{
			Source:            models.PostSource(f.Source),
			URI:               f.URI,
			AuthorHandle:      f.AuthorHandle,
			AuthorDisplayName: f.AuthorDisplayName,
			Text:              f.Text,
			LikeCount:         f.LikeCount,
			BookmarkCount:     f.BookmarkCount,
			QuoteCount:        f.QuoteCount,
			ReplyCount:        f.ReplyCount,
			RepostCount:       f.RepostCount,
			CreatedAt:         f.CreatedAt,
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// fixtureDigest hashes all fixture files in a fixed order.
func fixtureDigest() (string, error) {
	h := sha256.New()
	for _, name := range fixtureFiles {
		data, err := fixtureFS.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("failed to read fixture %s: %w", name, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
