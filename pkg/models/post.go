package models

import "time"

// PostSource identifies the origin of a post. The string form is part of the
// canonical post ID ("{source}:{uri}").
type PostSource string

// Post sources.
const (
	PostSourceBluesky     PostSource = "bluesky"
	PostSourceAIGenerated PostSource = "ai_generated"
)

// MakePostID builds the canonical post identity "{source}:{uri}".
func MakePostID(source PostSource, uri string) string {
	return string(source) + ":" + uri
}

// Post is a candidate piece of content. Posts are immutable within a run and
// shared read-only across agents within a turn.
type Post struct {
	PostID            string     `json:"post_id"`
	Source            PostSource `json:"source"`
	URI               string     `json:"uri"`
	AuthorHandle      string     `json:"author_handle"`
	AuthorDisplayName string     `json:"author_display_name"`
	Text              string     `json:"text"`
	LikeCount         int        `json:"like_count"`
	BookmarkCount     int        `json:"bookmark_count"`
	QuoteCount        int        `json:"quote_count"`
	ReplyCount        int        `json:"reply_count"`
	RepostCount       int        `json:"repost_count"`
	CreatedAt         time.Time  `json:"created_at"`
}
