// Package http contains the gin handlers for the workspace API.
package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/domain/bridge"
	"github.com/tabflow/backend/internal/domain/inbox"
	"github.com/tabflow/backend/internal/domain/workspace"
	"github.com/tabflow/backend/internal/infrastructure/monitoring"
	"github.com/tabflow/backend/internal/storage"
)

// maxImportBytes bounds the accepted import payload. Workspaces are small;
// anything larger than this is not a legitimate snapshot.
const maxImportBytes = 10 << 20

// BridgeConn reports whether an extension connection is currently open.
type BridgeConn interface {
	Connected() bool
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo    *workspace.Repository
	inbox   *inbox.Inbox
	client  *bridge.Client
	store   *storage.WorkspaceStore
	conn    BridgeConn
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set.
func NewHandlers(
	repo *workspace.Repository,
	box *inbox.Inbox,
	client *bridge.Client,
	store *storage.WorkspaceStore,
	conn BridgeConn,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		repo:    repo,
		inbox:   box,
		client:  client,
		store:   store,
		conn:    conn,
		metrics: metrics,
		logger:  logger,
	}
}

// Health handles the health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"workspace": h.repo.Stats(),
		"bridge": gin.H{
			"state":     h.client.State(),
			"connected": h.conn != nil && h.conn.Connected(),
		},
	})
}

// GetWorkspace returns the full workspace snapshot.
func (h *Handlers) GetWorkspace(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workspace": h.repo.Snapshot()})
}

// WorkspaceStats returns the dashboard counters.
func (h *Handlers) WorkspaceStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.repo.Stats())
}

type createSessionRequest struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// CreateSession appends a new empty session.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.repo.CreateSession(req.Name, req.Tags)
	if err != nil {
		h.fail(c, "create session", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "workspace": h.repo.Snapshot()})
}

type updateSessionRequest struct {
	Name *string   `json:"name"`
	Tags *[]string `json:"tags"`
	X    *float64  `json:"x"`
	Y    *float64  `json:"y"`
}

// UpdateSession renames, retags or repositions a session. Stale ids are a
// no-op: the workspace may have changed under the UI, and a stale request
// must never corrupt state.
func (h *Handlers) UpdateSession(c *gin.Context) {
	sessionID := c.Param("id")

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		if err := h.repo.Rename(sessionID, *req.Name); err != nil {
			h.fail(c, "rename session", err)
			return
		}
	}
	if req.Tags != nil {
		if err := h.repo.SetTags(sessionID, *req.Tags); err != nil {
			h.fail(c, "set tags", err)
			return
		}
	}
	if req.X != nil && req.Y != nil {
		if err := h.repo.SetPosition(sessionID, *req.X, *req.Y); err != nil {
			h.fail(c, "set position", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"workspace": h.repo.Snapshot()})
}

// DeleteSession removes a session. Absent ids are a no-op.
func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.repo.Delete(c.Param("id")); err != nil {
		h.fail(c, "delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": h.repo.Snapshot()})
}

// AddTab merges a live tab into a session, the drag-drop path. The inbox
// entry is consumed whether or not the merge deduplicated.
func (h *Handlers) AddTab(c *gin.Context) {
	sessionID := c.Param("id")

	var tab workspace.Tab
	if err := c.ShouldBindJSON(&tab); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if tab.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab url is required"})
		return
	}

	if err := h.repo.AddTab(sessionID, tab); err != nil {
		h.fail(c, "add tab", err)
		return
	}
	h.inbox.Consume(tab.ID)
	c.JSON(http.StatusOK, gin.H{"workspace": h.repo.Snapshot()})
}

// RemoveTab removes a tab from a session. Absent ids are a no-op.
func (h *Handlers) RemoveTab(c *gin.Context) {
	if err := h.repo.RemoveTab(c.Param("id"), c.Param("tabId")); err != nil {
		h.fail(c, "remove tab", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": h.repo.Snapshot()})
}

type fromTabRequest struct {
	Tab  workspace.Tab `json:"tab"`
	Tags []string      `json:"tags"`
}

// CreateSessionFromTab creates a session from a tab dropped onto open
// canvas space.
func (h *Handlers) CreateSessionFromTab(c *gin.Context) {
	var req fromTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Tab.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab url is required"})
		return
	}
	if req.Tags == nil {
		req.Tags = []string{"Workspace"}
	}

	session, err := h.repo.CreateSessionFromTab(req.Tab, req.Tags)
	if err != nil {
		h.fail(c, "create session from tab", err)
		return
	}
	h.inbox.Consume(req.Tab.ID)
	c.JSON(http.StatusCreated, gin.H{"session": session, "workspace": h.repo.Snapshot()})
}

// SearchSessions returns fuzzy name/tag matches.
func (h *Handlers) SearchSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.repo.Search(c.Query("q"))})
}

// ExportWorkspace streams the durable snapshot as a downloadable artifact.
func (h *Handlers) ExportWorkspace(c *gin.Context) {
	data, name, err := h.store.ExportSnapshot()
	if err != nil {
		h.fail(c, "export workspace", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportWorkspace replaces the workspace from an uploaded snapshot. A
// payload whose top level is not a JSON array is rejected and the existing
// workspace is left untouched.
func (h *Handlers) ImportWorkspace(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read payload"})
		return
	}

	imported, err := h.store.ImportSnapshot(body)
	if err != nil {
		if errors.Is(err, storage.ErrBadSnapshot) {
			if h.metrics != nil {
				h.metrics.RecordImport("rejected")
			}
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.fail(c, "import workspace", err)
		return
	}

	h.repo.Replace(imported)
	if h.metrics != nil {
		h.metrics.RecordImport("ok")
	}
	h.logger.Info("workspace imported", zap.Int("sessions", len(imported)))
	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": imported})
}

// ListInbox returns the current live tabs.
func (h *Handlers) ListInbox(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tabs": h.inbox.List()})
}

// FetchInbox triggers a bridge fetch and returns the refreshed inbox.
func (h *Handlers) FetchInbox(c *gin.Context) {
	tabs, err := h.client.Fetch(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrNotConfigured):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
				"code":  "bridge_not_configured",
			})
		case errors.Is(err, bridge.ErrFetchTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"tabs": tabs})
}

// ConsumeInboxTab drops one live tab without merging it anywhere.
func (h *Handlers) ConsumeInboxTab(c *gin.Context) {
	h.inbox.Consume(c.Param("tabId"))
	c.JSON(http.StatusOK, gin.H{"tabs": h.inbox.List()})
}

// BridgeStatus reports the bridge state machine and connection.
func (h *Handlers) BridgeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":     h.client.State(),
		"bridgeId":  h.client.Identity(),
		"connected": h.conn != nil && h.conn.Connected(),
	})
}

type bridgeIdentityRequest struct {
	BridgeID string `json:"bridgeId" binding:"required"`
}

// SetBridgeIdentity trusts a user-entered bridge identity.
func (h *Handlers) SetBridgeIdentity(c *gin.Context) {
	var req bridgeIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.client.SetIdentity(req.BridgeID)
	c.JSON(http.StatusOK, gin.H{"state": h.client.State(), "bridgeId": h.client.Identity()})
}

func (h *Handlers) fail(c *gin.Context, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
