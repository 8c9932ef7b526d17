package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Actions persists accepted agent actions. Writes take a database.DBTX so
// they commit atomically with the turn metadata.
type Actions struct {
	db *sql.DB
}

// NewActions creates an actions repository on the shared pool.
func NewActions(db *sql.DB) *Actions {
	return &Actions{db: db}
}

// WriteLikes inserts the given likes inside the caller's transaction. IDs are
// caller-supplied.
func (r *Actions) WriteLikes(ctx context.Context, q database.DBTX, likes []models.Like) error {
	for _, l := range likes {
		_, err := q.ExecContext(ctx, `
			INSERT INTO likes (like_id, run_id, turn_number, agent_handle, post_id, created_at,
				explanation, model_used, generation_metadata, generation_created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			l.LikeID, l.RunID, l.TurnNumber, l.AgentHandle, l.PostID, l.CreatedAt.UTC(),
			nullStr(l.Explanation), nullStr(l.Generation.ModelUsed),
			nullBytes(l.Generation.Metadata), nullTime(l.Generation.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to write like %s: %w", l.LikeID, err)
		}
	}
	return nil
}

// WriteComments inserts the given comments inside the caller's transaction.
func (r *Actions) WriteComments(ctx context.Context, q database.DBTX, comments []models.Comment) error {
	for _, c := range comments {
		_, err := q.ExecContext(ctx, `
			INSERT INTO comments (comment_id, run_id, turn_number, agent_handle, post_id,
				comment_text, created_at, explanation, model_used, generation_metadata, generation_created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.CommentID, c.RunID, c.TurnNumber, c.AgentHandle, c.PostID,
			c.Text, c.CreatedAt.UTC(), nullStr(c.Explanation), nullStr(c.Generation.ModelUsed),
			nullBytes(c.Generation.Metadata), nullTime(c.Generation.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to write comment %s: %w", c.CommentID, err)
		}
	}
	return nil
}

// WriteFollows inserts the given follows inside the caller's transaction.
func (r *Actions) WriteFollows(ctx context.Context, q database.DBTX, follows []models.Follow) error {
	for _, f := range follows {
		_, err := q.ExecContext(ctx, `
			INSERT INTO follows (follow_id, run_id, turn_number, agent_handle, user_id, created_at,
				explanation, model_used, generation_metadata, generation_created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			f.FollowID, f.RunID, f.TurnNumber, f.AgentHandle, f.UserID, f.CreatedAt.UTC(),
			nullStr(f.Explanation), nullStr(f.Generation.ModelUsed),
			nullBytes(f.Generation.Metadata), nullTime(f.Generation.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to write follow %s: %w", f.FollowID, err)
		}
	}
	return nil
}

// ListLikesForTurn returns all likes recorded in one turn in stable order.
func (r *Actions) ListLikesForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Like, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT like_id, run_id, turn_number, agent_handle, post_id, created_at,
			explanation, model_used, generation_metadata, generation_created_at
		FROM likes WHERE run_id = $1 AND turn_number = $2
		ORDER BY agent_handle, created_at, like_id`,
		runID, turnNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes for run %s turn %d: %w", runID, turnNumber, err)
	}
	defer rows.Close()

	var likes []models.Like
	for rows.Next() {
		var l models.Like
		var explanation, modelUsed sql.NullString
		var metadata []byte
		var genCreated sql.NullTime
		err := rows.Scan(&l.LikeID, &l.RunID, &l.TurnNumber, &l.AgentHandle, &l.PostID,
			&l.CreatedAt, &explanation, &modelUsed, &metadata, &genCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		l.Explanation = fromNullString(explanation)
		l.Generation = generation(modelUsed, metadata, genCreated)
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// ListCommentsForTurn returns all comments recorded in one turn in stable order.
func (r *Actions) ListCommentsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT comment_id, run_id, turn_number, agent_handle, post_id, comment_text, created_at,
			explanation, model_used, generation_metadata, generation_created_at
		FROM comments WHERE run_id = $1 AND turn_number = $2
		ORDER BY agent_handle, created_at, comment_id`,
		runID, turnNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for run %s turn %d: %w", runID, turnNumber, err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var explanation, modelUsed sql.NullString
		var metadata []byte
		var genCreated sql.NullTime
		err := rows.Scan(&c.CommentID, &c.RunID, &c.TurnNumber, &c.AgentHandle, &c.PostID,
			&c.Text, &c.CreatedAt, &explanation, &modelUsed, &metadata, &genCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Explanation = fromNullString(explanation)
		c.Generation = generation(modelUsed, metadata, genCreated)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListFollowsForTurn returns all follows recorded in one turn in stable order.
func (r *Actions) ListFollowsForTurn(ctx context.Context, runID string, turnNumber int) ([]models.Follow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT follow_id, run_id, turn_number, agent_handle, user_id, created_at,
			explanation, model_used, generation_metadata, generation_created_at
		FROM follows WHERE run_id = $1 AND turn_number = $2
		ORDER BY agent_handle, created_at, follow_id`,
		runID, turnNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows for run %s turn %d: %w", runID, turnNumber, err)
	}
	defer rows.Close()

	var follows []models.Follow
	for rows.Next() {
		var f models.Follow
		var explanation, modelUsed sql.NullString
		var metadata []byte
		var genCreated sql.NullTime
		err := rows.Scan(&f.FollowID, &f.RunID, &f.TurnNumber, &f.AgentHandle, &f.UserID,
			&f.CreatedAt, &explanation, &modelUsed, &metadata, &genCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		f.Explanation = fromNullString(explanation)
		f.Generation = generation(modelUsed, metadata, genCreated)
		follows = append(follows, f)
	}
	return follows, rows.Err()
}

func generation(modelUsed sql.NullString, metadata []byte, createdAt sql.NullTime) models.GenerationMetadata {
	gen := models.GenerationMetadata{
		ModelUsed: fromNullString(modelUsed),
		CreatedAt: fromNullTime(createdAt),
	}
	if len(metadata) > 0 {
		gen.Metadata = json.RawMessage(metadata)
	}
	return gen
}
