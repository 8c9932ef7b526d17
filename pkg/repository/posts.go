package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Posts persists the content corpus agents act on.
type Posts struct {
	db *sql.DB
}

// NewPosts creates a posts repository on the shared pool.
func NewPosts(db *sql.DB) *Posts {
	return &Posts{db: db}
}

// CreatePost inserts a post. The post_id is derived from (source, uri).
func (r *Posts) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	post.PostID = models.MakePostID(post.Source, post.URI)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_posts (post_id, source, uri, author_handle, author_display_name,
			post_text, like_count, bookmark_count, quote_count, reply_count, repost_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		post.PostID, string(post.Source), post.URI, post.AuthorHandle, post.AuthorDisplayName,
		post.Text, post.LikeCount, post.BookmarkCount, post.QuoteCount, post.ReplyCount,
		post.RepostCount, post.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create post %s: %w", post.PostID, err)
	}
	return &post, nil
}

const postColumns = `post_id, source, uri, author_handle, author_display_name,
	post_text, like_count, bookmark_count, quote_count, reply_count, repost_count, created_at`

// ListAllFeedPosts returns the full candidate corpus. Every feed generation
// for every agent starts from this set, so it is the read hotspot of a turn.
func (r *Posts) ListAllFeedPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM feed_posts ORDER BY created_at DESC, uri`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ReadFeedPostsByIDs hydrates posts for the given ids, preserving the input
// order. IDs that no longer resolve are silently omitted.
func (r *Posts) ReadFeedPostsByIDs(ctx context.Context, postIDs []string) ([]models.Post, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(postIDs))
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM feed_posts WHERE post_id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed posts by ids: %w", err)
	}
	defer rows.Close()

	fetched, err := collectPosts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Post, len(fetched))
	for _, p := range fetched {
		byID[p.PostID] = p
	}

	ordered := make([]models.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func collectPosts(rows *sql.Rows) ([]models.Post, error) {
	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var source string
		err := rows.Scan(&p.PostID, &source, &p.URI, &p.AuthorHandle, &p.AuthorDisplayName,
			&p.Text, &p.LikeCount, &p.BookmarkCount, &p.QuoteCount, &p.ReplyCount,
			&p.RepostCount, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Source = models.PostSource(source)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
