package sim

import (
	"context"
	"database/sql"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// RunStore is the run persistence port the orchestrators write through.
type RunStore interface {
	CreateRun(ctx context.Context, config models.RunConfig) (*models.Run, error)
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, completedAt *time.Time) error
	UpdateRunStatusIn(ctx context.Context, q database.DBTX, runID string, status models.RunStatus, completedAt *time.Time) error
	WriteTurnMetadata(ctx context.Context, q database.DBTX, meta models.TurnMetadata) error
}

// MetricsStore is the metrics persistence port.
type MetricsStore interface {
	WriteTurnMetrics(ctx context.Context, q database.DBTX, metrics models.TurnMetrics) error
	WriteRunMetrics(ctx context.Context, q database.DBTX, metrics models.RunMetrics) error
}

// ActionStore is the accepted-action persistence port.
type ActionStore interface {
	WriteLikes(ctx context.Context, q database.DBTX, likes []models.Like) error
	WriteComments(ctx context.Context, q database.DBTX, comments []models.Comment) error
	WriteFollows(ctx context.Context, q database.DBTX, follows []models.Follow) error
}

// TxProvider hands out scoped write transactions: commit on success, rollback
// on error or panic.
type TxProvider interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// AgentStore is the agent population port the factory reads from.
type AgentStore interface {
	ListAgents(ctx context.Context, limit int) ([]models.Agent, error)
	CountAgents(ctx context.Context) (int, error)
	LatestBio(ctx context.Context, agentID string) (*models.AgentBio, error)
}
