package sim

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// AgentFactory materializes the agent population for a run.
type AgentFactory interface {
	// Agents returns exactly numAgents agents with unique handles, or an
	// error.
	Agents(ctx context.Context, numAgents int) ([]models.Agent, error)
}

// StoredAgentFactory serves agents from the agent store in stable handle
// order.
type StoredAgentFactory struct {
	store AgentStore
}

// NewStoredAgentFactory creates a factory over the agent store.
func NewStoredAgentFactory(store AgentStore) *StoredAgentFactory {
	return &StoredAgentFactory{store: store}
}

// Agents implements AgentFactory.
func (f *StoredAgentFactory) Agents(ctx context.Context, numAgents int) ([]models.Agent, error) {
	agents, err := f.store.ListAgents(ctx, numAgents)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	if len(agents) < numAgents {
		return nil, &InsufficientAgentsError{Requested: numAgents, Available: len(agents)}
	}

	handles := make(map[string]struct{}, len(agents))
	for _, agent := range agents {
		if _, ok := handles[agent.Handle]; ok {
			return nil, fmt.Errorf("duplicate agent handle %s", agent.Handle)
		}
		handles[agent.Handle] = struct{}{}
	}
	return agents, nil
}

// LoadBios resolves the latest persona bio per agent, keyed by handle.
// Agents without a bio get an empty entry.
func LoadBios(ctx context.Context, store AgentStore, agents []models.Agent) (map[string]string, error) {
	bios := make(map[string]string, len(agents))
	for _, agent := range agents {
		bio, err := store.LatestBio(ctx, agent.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bio for agent %s: %w", agent.Handle, err)
		}
		if bio != nil {
			bios[agent.Handle] = bio.Text
		} else {
			bios[agent.Handle] = ""
		}
	}
	return bios, nil
}
