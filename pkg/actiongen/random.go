package actiongen

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

const defaultSelectionProbability = 0.5

// RandomSimple gates each top-ranked candidate behind a probability draw.
// The generator is seeded per (run, turn, agent), so a fixed seed in config
// makes whole runs reproducible.
type RandomSimple struct {
	action models.ActionType
}

// NewRandomSimple creates a random_simple generator for one action type.
func NewRandomSimple(action models.ActionType) *RandomSimple {
	return &RandomSimple{action: action}
}

// ActionType implements Generator.
func (g *RandomSimple) ActionType() models.ActionType {
	return g.action
}

// Generate implements Generator.
func (g *RandomSimple) Generate(_ context.Context, req Request) ([]models.GeneratedAction, error) {
	if len(req.Candidates) == 0 {
		return nil, nil
	}

	probability := defaultSelectionProbability
	if req.Config != nil {
		if p, ok := req.Config["probability"].(float64); ok && p >= 0 && p <= 1 {
			probability = p
		}
	}

	rng := rand.New(rand.NewPCG(g.seed(req), uint64(req.TurnNumber)))
	ranked := rankCandidates(req.Candidates, req.MaxActions)
	now := time.Now().UTC()

	var actions []models.GeneratedAction
	for rank, post := range ranked {
		if rng.Float64() >= probability {
			continue
		}
		actions = append(actions, buildAction(g.action, post, now,
			"Selected from top-ranked candidates by probability gate.",
			generationMetadata("random_simple", rank+1)))
	}
	return dedupeSortByTarget(actions), nil
}

// seed uses the configured seed when present, otherwise derives one from the
// (run, turn, agent, action) identity so distinct agents draw independently.
func (g *RandomSimple) seed(req Request) uint64 {
	if req.Config != nil {
		if s, ok := req.Config["seed"].(float64); ok {
			return uint64(s)
		}
	}
	h := fnv.New64a()
	h.Write([]byte(req.RunID))
	h.Write([]byte{'|'})
	h.Write([]byte(req.Agent.Handle))
	h.Write([]byte{'|'})
	h.Write([]byte(g.action))
	return h.Sum64()
}
