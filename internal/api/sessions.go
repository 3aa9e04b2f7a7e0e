package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"prompt2web_server/internal/export"
	"prompt2web_server/internal/filetree"
	"prompt2web_server/internal/generation"
	"prompt2web_server/internal/preview"
	"prompt2web_server/internal/session"
)

// contentSecurityPolicy sandboxes the composited document: scripts and same-origin
// behaviour run, navigation of the embedding page does not.
const contentSecurityPolicy = "sandbox allow-scripts allow-same-origin"

type SessionResponse struct {
	ID       string              `json:"id"`
	Snapshot generation.Snapshot `json:"snapshot"`
}

type UpdateFileRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// POST /sessions
func (h *APIHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create(c.GetString(ctxUserID))
	h.logger.Info("session created", "session", sess.ID, "uid", sess.UID)
	c.JSON(http.StatusCreated, SessionResponse{ID: sess.ID, Snapshot: sess.Orchestrator.Snapshot()})
}

// GET /sessions/:id
func (h *APIHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SessionResponse{ID: sess.ID, Snapshot: sess.Orchestrator.Snapshot()})
}

// DELETE /sessions/:id
func (h *APIHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id"), c.GetString(ctxUserID)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /sessions/:id/generate
func (h *APIHandler) StartGeneration(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	u, err := h.currentUser(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	caller := generation.Caller{UID: u.UID, Plan: u.Plan, PromptsUsed: u.PromptsUsed}
	runID, err := sess.Orchestrator.Start(c.Request.Context(), caller, req.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

// POST /sessions/:id/stop
func (h *APIHandler) StopGeneration(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	stopped := sess.Orchestrator.Stop()
	c.JSON(http.StatusOK, gin.H{"stopped": stopped, "snapshot": sess.Orchestrator.Snapshot()})
}

// PUT /sessions/:id/files
func (h *APIHandler) UpdateFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := sess.Orchestrator.UpdateFile(req.Path, req.Content); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": sess.Orchestrator.Snapshot().Revision})
}

// GET /sessions/:id/events
func (h *APIHandler) StreamEvents(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	events, unsubscribe := sess.Orchestrator.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-events:
			if !ok {
				// session deleted or expired
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
			if snap.State.Terminal() {
				return
			}
		}
	}
}

// GET /sessions/:id/preview?edit=true
func (h *APIHandler) Preview(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap := sess.Orchestrator.Snapshot()
	if snap.Project == nil {
		h.respondError(c, generation.ErrNoProject)
		return
	}
	edit := c.Query("edit") == "true"
	doc := h.previews.Render(preview.Key(sess.ID, snap.Revision, edit), snap.Project, edit)

	c.Header("Content-Security-Policy", contentSecurityPolicy)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// GET /sessions/:id/download
func (h *APIHandler) Download(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap := sess.Orchestrator.Snapshot()
	if snap.Project == nil {
		h.respondError(c, generation.ErrNoProject)
		return
	}
	doc := h.previews.Render(preview.Key(sess.ID, snap.Revision, false), snap.Project, false)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DocumentName(snap.Project.ProjectName)))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// GET /sessions/:id/tree
func (h *APIHandler) Tree(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap := sess.Orchestrator.Snapshot()
	tree := []*filetree.Node{}
	if snap.Project != nil {
		tree = filetree.Build(snap.Project.Files)
	}
	c.JSON(http.StatusOK, gin.H{"tree": tree, "selectedFile": snap.SelectedFile})
}

// session resolves :id for the caller and renews its expiry. It writes the error
// response itself.
func (h *APIHandler) session(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	h.sessions.Touch(sess)
	return sess, true
}
