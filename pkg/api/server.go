// Package api exposes the engine over HTTP: run submission, read-side
// queries and health.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/socialsim/pkg/database"
	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/services"
)

// AgentCreator is the agent-write port used by the agents endpoint.
type AgentCreator interface {
	CreateAgent(ctx context.Context, agent models.Agent) (*models.Agent, error)
}

// Server is the HTTP API server.
type Server struct {
	query      *services.QueryService
	simulation *services.SimulationService
	agents     AgentCreator
	db         *database.Client
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the API server and wires its routes.
func NewServer(query *services.QueryService, simulation *services.SimulationService, agents AgentCreator, db *database.Client, addr string, logger *slog.Logger) *Server {
	s := &Server{
		query:      query,
		simulation: simulation,
		agents:     agents,
		db:         db,
		logger:     logger.With("component", "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	v1.GET("/health", s.Health)
	v1.POST("/runs", s.CreateRun)
	v1.GET("/runs", s.ListRuns)
	v1.GET("/runs/:id", s.GetRun)
	v1.GET("/runs/:id/metrics", s.GetRunMetrics)
	v1.GET("/runs/:id/turns", s.ListTurns)
	v1.GET("/runs/:id/turns/:turn", s.GetTurn)
	v1.GET("/runs/:id/turns/:turn/data", s.GetTurnData)
	v1.POST("/agents", s.CreateAgent)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Health reports API and database health.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealth,
	})
}
