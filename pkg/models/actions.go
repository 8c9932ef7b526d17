package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultExplanation replaces null/whitespace explanations on hydration.
// This normalization is one-way: generated actions always carry a non-empty
// explanation, persisted rows may not.
const DefaultExplanation = "No explanation provided."

// NormalizeExplanation returns the explanation, or DefaultExplanation when
// it is empty or whitespace.
func NormalizeExplanation(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultExplanation
	}
	return s
}

// GenerationMetadata describes how an action was produced. Metadata is an
// opaque JSON blob; it round-trips byte-for-byte through persistence.
type GenerationMetadata struct {
	ModelUsed string          `json:"model_used,omitempty"`
	Metadata  json.RawMessage `json:"generation_metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// GeneratedAction is the generator-output form of an action: the target,
// a human-readable explanation and generation metadata. Exactly one of
// PostID (like/comment) or UserID (follow) is set; Text is set for comments.
type GeneratedAction struct {
	Type        ActionType         `json:"type"`
	PostID      string             `json:"post_id,omitempty"`
	UserID      string             `json:"user_id,omitempty"`
	Text        string             `json:"text,omitempty"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
}

// Target returns the dedupe/history key for the action: post_id for likes
// and comments, user_id for follows.
func (a GeneratedAction) Target() string {
	if a.Type == ActionTypeFollow {
		return a.UserID
	}
	return a.PostID
}

// GeneratedLike is a like produced by an action generator.
type GeneratedLike struct {
	PostID      string             `json:"post_id"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
}

// GeneratedComment is a comment produced by an action generator.
type GeneratedComment struct {
	PostID      string             `json:"post_id"`
	Text        string             `json:"text"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
}

// GeneratedFollow is a follow produced by an action generator.
type GeneratedFollow struct {
	UserID      string             `json:"user_id"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
}

// Like is the persisted form of a like, denormalized with run/turn/agent.
type Like struct {
	LikeID      string             `json:"like_id"`
	RunID       string             `json:"run_id"`
	TurnNumber  int                `json:"turn_number"`
	AgentHandle string             `json:"agent_handle"`
	PostID      string             `json:"post_id"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Comment is the persisted form of a comment.
type Comment struct {
	CommentID   string             `json:"comment_id"`
	RunID       string             `json:"run_id"`
	TurnNumber  int                `json:"turn_number"`
	AgentHandle string             `json:"agent_handle"`
	PostID      string             `json:"post_id"`
	Text        string             `json:"text"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Follow is the persisted form of a follow.
type Follow struct {
	FollowID    string             `json:"follow_id"`
	RunID       string             `json:"run_id"`
	TurnNumber  int                `json:"turn_number"`
	AgentHandle string             `json:"agent_handle"`
	UserID      string             `json:"user_id"`
	Explanation string             `json:"explanation"`
	Generation  GenerationMetadata `json:"generation"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Generated converts a persisted like back to its generated form,
// normalizing the explanation.
func (l Like) Generated() GeneratedLike {
	return GeneratedLike{
		PostID:      l.PostID,
		Explanation: NormalizeExplanation(l.Explanation),
		Generation:  l.Generation,
	}
}

// Generated converts a persisted comment back to its generated form.
func (c Comment) Generated() GeneratedComment {
	return GeneratedComment{
		PostID:      c.PostID,
		Text:        c.Text,
		Explanation: NormalizeExplanation(c.Explanation),
		Generation:  c.Generation,
	}
}

// Generated converts a persisted follow back to its generated form.
func (f Follow) Generated() GeneratedFollow {
	return GeneratedFollow{
		UserID:      f.UserID,
		Explanation: NormalizeExplanation(f.Explanation),
		Generation:  f.Generation,
	}
}

// Action converts a generated like to the hydration union form.
func (g GeneratedLike) Action() GeneratedAction {
	return GeneratedAction{
		Type:        ActionTypeLike,
		PostID:      g.PostID,
		Explanation: g.Explanation,
		Generation:  g.Generation,
	}
}

// Action converts a generated comment to the hydration union form.
func (g GeneratedComment) Action() GeneratedAction {
	return GeneratedAction{
		Type:        ActionTypeComment,
		PostID:      g.PostID,
		Text:        g.Text,
		Explanation: g.Explanation,
		Generation:  g.Generation,
	}
}

// Action converts a generated follow to the hydration union form.
func (g GeneratedFollow) Action() GeneratedAction {
	return GeneratedAction{
		Type:        ActionTypeFollow,
		UserID:      g.UserID,
		Explanation: g.Explanation,
		Generation:  g.Generation,
	}
}
