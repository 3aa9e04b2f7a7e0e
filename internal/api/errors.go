package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prompt2web_server/internal/ai"
	"prompt2web_server/internal/generation"
	"prompt2web_server/internal/session"
	"prompt2web_server/internal/utils"
)

// respondError maps domain errors onto HTTP statuses and writes the JSON body.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	var quotaErr *generation.QuotaExceededError
	var parseErr *ai.SynthesisParseError
	var emptyErr *ai.SynthesisEmptyResultError
	var providerErr *ai.ProviderError

	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": err.Error(),
			"plan":  quotaErr.Plan,
			"limit": quotaErr.Limit,
			"used":  quotaErr.Used,
		})
	case errors.As(err, &parseErr):
		h.logger.Error("synthesis response could not be parsed", "error", err, "raw", parseErr.Raw)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "raw": parseErr.Raw})
	case errors.As(err, &emptyErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &providerErr):
		h.logger.Error("model provider call failed", "provider", providerErr.Provider, "status", providerErr.StatusCode, "error", err)
		status := http.StatusBadGateway
		if utils.ShouldRetry(err) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
	case errors.Is(err, generation.ErrRunActive):
		c.JSON(http.StatusConflict, gin.H{"error": "A generation is already running in this session"})
	case errors.Is(err, session.ErrNotFound), errors.Is(err, generation.ErrClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, generation.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, generation.ErrNoProject), errors.Is(err, generation.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
