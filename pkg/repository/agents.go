package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Agents persists the synthetic user population and their persona bios.
type Agents struct {
	db *sql.DB
}

// NewAgents creates an agents repository on the shared pool.
func NewAgents(db *sql.DB) *Agents {
	return &Agents{db: db}
}

// CreateAgent inserts a new agent. The handle is normalized first; a
// collision yields ErrHandleAlreadyExists.
func (r *Agents) CreateAgent(ctx context.Context, agent models.Agent) (*models.Agent, error) {
	now := time.Now().UTC()
	agent.AgentID = uuid.NewString()
	agent.Handle = models.NormalizeHandle(agent.Handle)
	agent.CreatedAt = now
	agent.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agents (agent_id, handle, display_name, persona_source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		agent.AgentID, agent.Handle, agent.DisplayName, string(agent.PersonaSource),
		agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrHandleAlreadyExists, agent.Handle)
		}
		return nil, fmt.Errorf("failed to create agent %s: %w", agent.Handle, err)
	}
	return &agent, nil
}

const agentColumns = `agent_id, handle, display_name, persona_source, created_at, updated_at`

// ListAgents returns up to limit agents in stable handle order. A limit of 0
// returns all agents.
func (r *Agents) ListAgents(ctx context.Context, limit int) ([]models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY handle`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var a models.Agent
		var source string
		if err := rows.Scan(&a.AgentID, &a.Handle, &a.DisplayName, &source, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		a.PersonaSource = models.PersonaSource(source)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// CountAgents returns the size of the stored population.
func (r *Agents) CountAgents(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return count, nil
}

// AddBio appends a new persona bio version for an agent.
func (r *Agents) AddBio(ctx context.Context, bio models.AgentBio) (*models.AgentBio, error) {
	now := time.Now().UTC()
	bio.BioID = uuid.NewString()
	bio.CreatedAt = now
	bio.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_bios (bio_id, agent_id, bio_text, persona_bio_source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		bio.BioID, bio.AgentID, bio.Text, string(bio.Source), bio.CreatedAt, bio.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add bio for agent %s: %w", bio.AgentID, err)
	}
	return &bio, nil
}

// LatestBio returns the most recent bio for an agent, or nil when the agent
// has none.
func (r *Agents) LatestBio(ctx context.Context, agentID string) (*models.AgentBio, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT bio_id, agent_id, bio_text, persona_bio_source, created_at, updated_at
		FROM agent_bios WHERE agent_id = $1
		ORDER BY created_at DESC, bio_id DESC LIMIT 1`,
		agentID)

	var bio models.AgentBio
	var source string
	err := row.Scan(&bio.BioID, &bio.AgentID, &bio.Text, &source, &bio.CreatedAt, &bio.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bio for agent %s: %w", agentID, err)
	}
	bio.Source = models.BioSource(source)
	return &bio, nil
}
