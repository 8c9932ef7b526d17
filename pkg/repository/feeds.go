package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Feeds persists generated per-agent feed selections.
type Feeds struct {
	db *sql.DB
}

// NewFeeds creates a feeds repository on the shared pool.
func NewFeeds(db *sql.DB) *Feeds {
	return &Feeds{db: db}
}

// WriteGeneratedFeed upserts the feed for (agent_handle, run_id, turn_number),
// replacing any previous selection for the slot.
func (r *Feeds) WriteGeneratedFeed(ctx context.Context, feed models.GeneratedFeed) (*models.GeneratedFeed, error) {
	if feed.FeedID == "" {
		feed.FeedID = uuid.NewString()
	}
	postIDs, err := marshalJSON(feed.PostIDs)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO generated_feeds (feed_id, run_id, turn_number, agent_handle, post_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (agent_handle, run_id, turn_number)
		DO UPDATE SET feed_id = excluded.feed_id, post_ids = excluded.post_ids, created_at = excluded.created_at`,
		feed.FeedID, feed.RunID, feed.TurnNumber, feed.AgentHandle, postIDs, feed.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to write generated feed for %s run %s turn %d: %w",
			feed.AgentHandle, feed.RunID, feed.TurnNumber, err)
	}
	return &feed, nil
}

// ListFeedsForTurn returns all generated feeds for one turn, ordered by agent
// handle.
func (r *Feeds) ListFeedsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.GeneratedFeed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feed_id, run_id, turn_number, agent_handle, post_ids, created_at
		FROM generated_feeds WHERE run_id = $1 AND turn_number = $2
		ORDER BY agent_handle`,
		runID, turnNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds for run %s turn %d: %w", runID, turnNumber, err)
	}
	defer rows.Close()

	var feeds []models.GeneratedFeed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

// GetGeneratedFeed returns the feed for one agent slot, or nil when none was
// generated.
func (r *Feeds) GetGeneratedFeed(ctx context.Context, runID string, turnNumber int, agentHandle string) (*models.GeneratedFeed, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT feed_id, run_id, turn_number, agent_handle, post_ids, created_at
		FROM generated_feeds WHERE run_id = $1 AND turn_number = $2 AND agent_handle = $3`,
		runID, turnNumber, agentHandle)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// SeenPostIDs returns the union of every post id already served to an agent
// across all prior turns of the run.
func (r *Feeds) SeenPostIDs(ctx context.Context, runID, agentHandle string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT post_ids FROM generated_feeds
		WHERE run_id = $1 AND agent_handle = $2`,
		runID, agentHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen posts for %s run %s: %w", agentHandle, runID, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan seen posts: %w", err)
		}
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("invalid post_ids: %w", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return seen, rows.Err()
}

func scanFeed(row rowScanner) (*models.GeneratedFeed, error) {
	var feed models.GeneratedFeed
	var postIDs []byte

	err := row.Scan(&feed.FeedID, &feed.RunID, &feed.TurnNumber, &feed.AgentHandle, &postIDs, &feed.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(postIDs, &feed.PostIDs); err != nil {
		return nil, fmt.Errorf("invalid post_ids: %w", err)
	}
	return &feed, nil
}
