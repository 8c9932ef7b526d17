package models

import (
	"strings"
	"time"
)

// PersonaSource identifies where an agent's persona came from.
type PersonaSource string

// Persona sources.
const (
	PersonaSourceUserGenerated PersonaSource = "user_generated"
	PersonaSourceSyncBluesky   PersonaSource = "sync_bluesky"
)

// BioSource identifies where a persona bio came from.
type BioSource string

// Bio sources.
const (
	BioSourceAIGenerated  BioSource = "ai_generated"
	BioSourceUserProvided BioSource = "user_provided"
)

// Agent is a synthetic user acting under algorithmic policies. Agents are
// read-only inputs to the engine; the identity set is fixed for a run.
type Agent struct {
	AgentID       string        `json:"agent_id"`
	Handle        string        `json:"handle"`
	DisplayName   string        `json:"display_name"`
	PersonaSource PersonaSource `json:"persona_source"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AgentBio is one version of an agent's persona text. Bios are append-only;
// "latest" means highest created_at for the agent.
type AgentBio struct {
	BioID     string    `json:"bio_id"`
	AgentID   string    `json:"agent_id"`
	Text      string    `json:"text"`
	Source    BioSource `json:"persona_bio_source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeHandle lowercases a handle and guarantees a leading '@'.
func NormalizeHandle(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	if h == "" {
		return h
	}
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	return h
}
