// Package actiongen implements the action-generation policies (deterministic,
// random, LLM-backed), the per-agent pipeline that runs them, and the
// invariant validator that guards the action history.
package actiongen

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// ErrUnknownGenerator is returned when no generator is registered for an
// (action type, algorithm) pair.
var ErrUnknownGenerator = errors.New("unknown action generator")

// Hard-coded algorithm fallbacks per action type, used when neither an
// explicit argument nor configuration names one.
const (
	FallbackLikeAlgorithm    = "deterministic"
	FallbackCommentAlgorithm = "random_simple"
	FallbackFollowAlgorithm  = "random_simple"
)

// Request carries everything a generator needs for one agent in one turn.
// Candidates are already filtered against the action history; generators only
// choose from them.
type Request struct {
	RunID      string
	TurnNumber int
	Agent      models.Agent
	PersonaBio string
	Candidates []models.Post
	MaxActions int
	Config     map[string]any
}

// Generator produces actions of one type for one agent. Implementations must
// return only targets present in the candidate set, emit each target at most
// once, and return empty output (not an error) for an empty candidate list.
type Generator interface {
	ActionType() models.ActionType
	Generate(ctx context.Context, req Request) ([]models.GeneratedAction, error)
}

type generatorKey struct {
	action    models.ActionType
	algorithm string
}

// Registry maps (action type, algorithm name) to generator implementations.
type Registry struct {
	generators map[generatorKey]Generator
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[generatorKey]Generator)}
}

// Register adds a generator for an action type under the given algorithm
// name, replacing any previous registration.
func (r *Registry) Register(action models.ActionType, algorithm string, gen Generator) {
	r.generators[generatorKey{action: action, algorithm: algorithm}] = gen
}

// Get resolves a generator.
func (r *Registry) Get(action models.ActionType, algorithm string) (Generator, error) {
	gen, ok := r.generators[generatorKey{action: action, algorithm: algorithm}]
	if !ok {
		return nil, fmt.Errorf("%w: action %s algorithm %q (known: %v)",
			ErrUnknownGenerator, action, algorithm, r.Algorithms(action))
	}
	return gen, nil
}

// Algorithms returns the registered algorithm names for an action type in
// sorted order.
func (r *Registry) Algorithms(action models.ActionType) []string {
	var names []string
	for k := range r.generators {
		if k.action == action {
			names = append(names, k.algorithm)
		}
	}
	sort.Strings(names)
	return names
}

// FallbackAlgorithm returns the hard-coded default algorithm for an action
// type.
func FallbackAlgorithm(action models.ActionType) string {
	switch action {
	case models.ActionTypeLike:
		return FallbackLikeAlgorithm
	case models.ActionTypeComment:
		return FallbackCommentAlgorithm
	default:
		return FallbackFollowAlgorithm
	}
}
