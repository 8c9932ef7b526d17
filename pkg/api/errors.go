package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/socialsim/pkg/llm"
	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/pkg/repository"
	"github.com/codeready-toolchain/socialsim/pkg/sim"
)

// Stable error codes exposed at the HTTP boundary.
const (
	codeValidationError     = "VALIDATION_ERROR"
	codeRunNotFound         = "RUN_NOT_FOUND"
	codeTurnNotFound        = "TURN_NOT_FOUND"
	codeHandleAlreadyExists = "HANDLE_ALREADY_EXISTS"
	codeRunCreationFailed   = "RUN_CREATION_FAILED"
	codeSimulationFailed    = "SIMULATION_FAILED"
	codeRateLimited         = "RATE_LIMITED"
	codeInternalError       = "INTERNAL_ERROR"
)

// respondError maps a domain error onto the HTTP error taxonomy.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("Unexpected service error", "error", err)
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

func classify(err error) (int, string) {
	var runCreation *sim.RunCreationError
	var runFailure *sim.SimulationRunFailure

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, codeValidationError
	case errors.Is(err, sim.ErrRunNotFound):
		return http.StatusNotFound, codeRunNotFound
	case errors.Is(err, repository.ErrHandleAlreadyExists):
		return http.StatusConflict, codeHandleAlreadyExists
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.As(err, &runCreation):
		return http.StatusInternalServerError, codeRunCreationFailed
	case errors.As(err, &runFailure):
		return http.StatusInternalServerError, codeSimulationFailed
	}
	return http.StatusInternalServerError, codeInternalError
}
