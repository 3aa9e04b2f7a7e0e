package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"prompt2web_server/internal/preview"
	"prompt2web_server/internal/session"
	"prompt2web_server/internal/types"
	"prompt2web_server/internal/users"
)

// Stages is the generation pipeline as exposed over HTTP.
type Stages interface {
	AnalyzePrompt(ctx context.Context, prompt string) (string, error)
	CreatePlan(ctx context.Context, prompt, analysis string) []string
	SynthesizeProject(ctx context.Context, prompt, analysis string, steps []string) (*types.Project, error)
	EnhancePrompt(ctx context.Context, prompt string) string
}

// UserStore resolves the caller's record, creating it on first sight.
type UserStore interface {
	Ensure(ctx context.Context, uid, username, email string) (*users.User, error)
}

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	stages   Stages
	sessions *session.Store
	users    UserStore
	previews *preview.Cache
	logger   *slog.Logger
}

// NewAPIHandler initializes a new API handler with its dependencies.
func NewAPIHandler(stages Stages, sessions *session.Store, userStore UserStore, previews *preview.Cache, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{
		stages:   stages,
		sessions: sessions,
		users:    userStore,
		previews: previews,
		logger:   logger,
	}
}

// --- Structs for API Requests/Responses ---

type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type PlanResponse struct {
	Analysis string   `json:"analysis"`
	Steps    []string `json:"steps"`
}

type GenerateRequest struct {
	Prompt   string   `json:"prompt" binding:"required"`
	Analysis string   `json:"analysis"`
	Steps    []string `json:"steps"`
}

type EnhanceResponse struct {
	Enhanced string `json:"enhanced"`
}

// --- Stateless pipeline endpoints ---

// POST /plan
func (h *APIHandler) Plan(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	analysis, err := h.stages.AnalyzePrompt(ctx, req.Prompt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("analysis failed, planning without it", "error", err)
		analysis = ""
	}
	steps := h.stages.CreatePlan(ctx, req.Prompt, analysis)

	c.JSON(http.StatusOK, PlanResponse{Analysis: analysis, Steps: steps})
}

// POST /generate
func (h *APIHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	project, err := h.stages.SynthesizeProject(c.Request.Context(), req.Prompt, req.Analysis, req.Steps)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("project generated", "project", project.ProjectName, "files", len(project.Files))
	c.JSON(http.StatusOK, project)
}

// POST /enhance
func (h *APIHandler) Enhance(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, EnhanceResponse{Enhanced: h.stages.EnhancePrompt(c.Request.Context(), req.Prompt)})
}

// GET /me
func (h *APIHandler) Me(c *gin.Context) {
	u, err := h.currentUser(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "limit": u.Limit()})
}

func (h *APIHandler) currentUser(c *gin.Context) (*users.User, error) {
	return h.users.Ensure(c.Request.Context(), c.GetString(ctxUserID), c.GetHeader(headerUserName), c.GetHeader(headerUserEmail))
}
