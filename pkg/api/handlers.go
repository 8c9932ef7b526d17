package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// CreateRun accepts a RunConfig, creates the run and returns 202 while the
// turn loop executes in the background.
func (s *Server) CreateRun(c *gin.Context) {
	var config models.RunConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		respondError(c, s.logger, models.NewValidationError("body", err.Error()))
		return
	}

	run, err := s.simulation.StartRun(c.Request.Context(), config)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

// ListRuns returns all runs, newest first.
func (s *Server) ListRuns(c *gin.Context) {
	runs, err := s.query.ListRuns(c.Request.Context())
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run.
func (s *Server) GetRun(c *gin.Context) {
	run, err := s.query.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunMetrics returns the final metrics of a run; for an unfinished or
// failed run the committed per-turn state is still queryable per turn.
func (s *Server) GetRunMetrics(c *gin.Context) {
	metrics, err := s.query.GetRunMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if metrics == nil {
		c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "metrics": nil})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// ListTurns returns the committed turn metadata of a run in turn order.
func (s *Server) ListTurns(c *gin.Context) {
	metas, err := s.query.ListTurnMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if metas == nil {
		metas = []models.TurnMetadata{}
	}
	c.JSON(http.StatusOK, gin.H{"turns": metas})
}

// GetTurn returns the metadata of one committed turn.
func (s *Server) GetTurn(c *gin.Context) {
	turnNumber, ok := s.turnParam(c)
	if !ok {
		return
	}
	meta, err := s.query.GetTurnMetadata(c.Request.Context(), c.Param("id"), turnNumber)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": codeTurnNotFound, "message": "turn not committed"},
		})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// GetTurnData returns the hydrated feeds and actions of one turn.
func (s *Server) GetTurnData(c *gin.Context) {
	turnNumber, ok := s.turnParam(c)
	if !ok {
		return
	}
	data, err := s.query.GetTurnData(c.Request.Context(), c.Param("id"), turnNumber)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": codeTurnNotFound, "message": "no feeds exist for this turn"},
		})
		return
	}
	c.JSON(http.StatusOK, data)
}

// CreateAgent adds one agent to the population.
func (s *Server) CreateAgent(c *gin.Context) {
	var agent models.Agent
	if err := c.ShouldBindJSON(&agent); err != nil {
		respondError(c, s.logger, models.NewValidationError("body", err.Error()))
		return
	}
	if agent.Handle == "" {
		respondError(c, s.logger, models.NewValidationError("handle", "required"))
		return
	}
	if agent.PersonaSource == "" {
		agent.PersonaSource = models.PersonaSourceUserGenerated
	}

	created, err := s.agents.CreateAgent(c.Request.Context(), agent)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) turnParam(c *gin.Context) (int, bool) {
	turnNumber, err := strconv.Atoi(c.Param("turn"))
	if err != nil || turnNumber < 0 {
		respondError(c, s.logger, models.NewValidationError("turn", "must be a non-negative integer"))
		return 0, false
	}
	return turnNumber, true
}
