// Package feed implements feed algorithms and the per-turn feed generation
// pipeline: candidate loading, filtering, algorithm dispatch, persistence and
// hydration.
package feed

import (
	"errors"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// MaxPostsPerFeed bounds the size of every generated feed.
const MaxPostsPerFeed = 20

// ErrUnknownAlgorithm is returned when a feed algorithm name is not
// registered.
var ErrUnknownAlgorithm = errors.New("unknown feed algorithm")

// Result is the output of one feed algorithm invocation: the ordered post
// selection for one agent.
type Result struct {
	AgentHandle string
	PostIDs     []string
}

// Algorithm selects and orders posts for one agent. Implementations must be
// pure (no I/O) and deterministic given the same inputs.
type Algorithm interface {
	Generate(candidates []models.Post, agent models.Agent, limit int, config map[string]any) (Result, error)
}

// Registry maps algorithm names to implementations. The name set is closed at
// startup; run configs are validated against it on ingress.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry creates a registry with the built-in algorithms registered.
func NewRegistry() *Registry {
	r := &Registry{algorithms: make(map[string]Algorithm)}
	r.Register("chronological", &Chronological{})
	return r
}

// Register adds an algorithm under the given name, replacing any previous
// registration.
func (r *Registry) Register(name string, algo Algorithm) {
	r.algorithms[name] = algo
}

// Get resolves an algorithm by name.
func (r *Registry) Get(name string) (Algorithm, error) {
	algo, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAlgorithm, name, r.Names())
	}
	return algo, nil
}

// Names returns the registered algorithm names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chronological orders candidates by created_at, newest first by default.
// Config key "order" set to "oldest_first" reverses the direction. Ties break
// by URI ascending.
type Chronological struct{}

// Generate implements Algorithm.
func (a *Chronological) Generate(candidates []models.Post, agent models.Agent, limit int, config map[string]any) (Result, error) {
	oldestFirst := false
	if config != nil {
		if order, ok := config["order"].(string); ok && order == "oldest_first" {
			oldestFirst = true
		}
	}

	sorted := make([]models.Post, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			if oldestFirst {
				return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
			}
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].URI < sorted[j].URI
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	postIDs := make([]string, len(sorted))
	for i, p := range sorted {
		postIDs[i] = p.PostID
	}
	return Result{AgentHandle: agent.Handle, PostIDs: postIDs}, nil
}
