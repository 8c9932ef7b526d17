// Package history tracks which actions each agent has already taken within a
// run, so generators can filter candidates and the validator can reject
// replays.
package history

import (
	"fmt"
	"sync"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Store answers "has this agent already done this?" for one run. Reads and
// records are keyed by (agent_handle, target). Implementations must be safe
// for concurrent use.
type Store interface {
	// HasLiked reports whether the agent already liked the post in this run.
	HasLiked(agentHandle, postID string) bool
	// HasCommented reports whether the agent already commented on the post.
	HasCommented(agentHandle, postID string) bool
	// HasFollowed reports whether the agent already follows the user.
	HasFollowed(agentHandle, userID string) bool

	// RecordLike marks the post as liked by the agent.
	RecordLike(agentHandle, postID string)
	// RecordComment marks the post as commented on by the agent.
	RecordComment(agentHandle, postID string)
	// RecordFollow marks the user as followed by the agent.
	RecordFollow(agentHandle, userID string)

	// Has dispatches on action type; target is post_id for likes/comments
	// and user_id for follows.
	Has(action models.ActionType, agentHandle, target string) bool
	// Record dispatches on action type.
	Record(action models.ActionType, agentHandle, target string)
}

// InMemoryStore is the run-scoped Store used by the engine. State lives for
// the duration of one run and is rebuilt empty for each new run.
type InMemoryStore struct {
	runID string

	mu       sync.RWMutex
	likes    map[string]struct{}
	comments map[string]struct{}
	follows  map[string]struct{}
}

// NewInMemoryStore creates an empty history store for one run.
func NewInMemoryStore(runID string) *InMemoryStore {
	return &InMemoryStore{
		runID:    runID,
		likes:    make(map[string]struct{}),
		comments: make(map[string]struct{}),
		follows:  make(map[string]struct{}),
	}
}

// RunID returns the run this store is scoped to.
func (s *InMemoryStore) RunID() string {
	return s.runID
}

func key(agentHandle, target string) string {
	return fmt.Sprintf("%s|%s", agentHandle, target)
}

// HasLiked reports whether the agent already liked the post in this run.
func (s *InMemoryStore) HasLiked(agentHandle, postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[key(agentHandle, postID)]
	return ok
}

// HasCommented reports whether the agent already commented on the post.
func (s *InMemoryStore) HasCommented(agentHandle, postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.comments[key(agentHandle, postID)]
	return ok
}

// HasFollowed reports whether the agent already follows the user.
func (s *InMemoryStore) HasFollowed(agentHandle, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.follows[key(agentHandle, userID)]
	return ok
}

// RecordLike marks the post as liked by the agent.
func (s *InMemoryStore) RecordLike(agentHandle, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[key(agentHandle, postID)] = struct{}{}
}

// RecordComment marks the post as commented on by the agent.
func (s *InMemoryStore) RecordComment(agentHandle, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[key(agentHandle, postID)] = struct{}{}
}

// RecordFollow marks the user as followed by the agent.
func (s *InMemoryStore) RecordFollow(agentHandle, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows[key(agentHandle, userID)] = struct{}{}
}

// Has dispatches on action type.
func (s *InMemoryStore) Has(action models.ActionType, agentHandle, target string) bool {
	switch action {
	case models.ActionTypeLike:
		return s.HasLiked(agentHandle, target)
	case models.ActionTypeComment:
		return s.HasCommented(agentHandle, target)
	case models.ActionTypeFollow:
		return s.HasFollowed(agentHandle, target)
	}
	return false
}

// Record dispatches on action type. Unknown types are ignored.
func (s *InMemoryStore) Record(action models.ActionType, agentHandle, target string) {
	switch action {
	case models.ActionTypeLike:
		s.RecordLike(agentHandle, target)
	case models.ActionTypeComment:
		s.RecordComment(agentHandle, target)
	case models.ActionTypeFollow:
		s.RecordFollow(agentHandle, target)
	}
}
