package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerUserID    = "X-User-ID"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"

	ctxUserID = "uid"
)

// requireUser reads the caller's identity, established upstream, from the request headers.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(headerUserID))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": headerUserID + " header is required"})
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

// RegisterRoutes sets up the API endpoints and groups them logically.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {

	// --- Stateless pipeline stages ---
	router.POST("/plan", h.Plan)
	router.POST("/generate", h.Generate)
	router.POST("/enhance", h.Enhance)

	// --- Caller record ---
	router.GET("/me", requireUser(), h.Me)

	// --- Generation sessions ---
	sessionGroup := router.Group("/sessions", requireUser())
	{
		sessionGroup.POST("", h.CreateSession)
		sessionGroup.GET("/:id", h.GetSession)
		sessionGroup.DELETE("/:id", h.DeleteSession)
		sessionGroup.GET("/:id/events", h.StreamEvents)
		sessionGroup.POST("/:id/generate", h.StartGeneration)
		sessionGroup.POST("/:id/stop", h.StopGeneration)
		sessionGroup.PUT("/:id/files", h.UpdateFile)
		sessionGroup.GET("/:id/preview", h.Preview)
		sessionGroup.GET("/:id/download", h.Download)
		sessionGroup.GET("/:id/tree", h.Tree)
	}

	// --- Simple Health Check ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
	})
}
