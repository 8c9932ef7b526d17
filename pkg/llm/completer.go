// Package llm defines the structured-completion contract used by LLM-backed
// action generators, and an Anthropic-backed implementation of it.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// CompletionRequest is one structured-completion call: a system prompt, a
// user prompt and a token cap.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// CompletionResult carries the model's text reply plus generation metadata
// for persistence alongside the actions it produced.
type CompletionResult struct {
	Text      string
	ModelUsed string
	Metadata  json.RawMessage
}

// StructuredCompleter is the narrow LLM contract the engine depends on.
// Implementations retry transient failures internally; terminal failures
// (auth, permission, invalid request) surface immediately.
type StructuredCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// ErrRateLimited marks a completion failure caused by provider rate limiting.
// It is only surfaced after the retry budget is exhausted.
var ErrRateLimited = errors.New("llm rate limited")
