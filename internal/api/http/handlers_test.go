package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/domain/bridge"
	"github.com/tabflow/backend/internal/domain/inbox"
	"github.com/tabflow/backend/internal/domain/workspace"
	"github.com/tabflow/backend/internal/storage"
)

type staticConn struct{ connected bool }

func (s staticConn) Connected() bool { return s.connected }

type testEnv struct {
	router *gin.Engine
	repo   *workspace.Repository
	inbox  *inbox.Inbox
	client *bridge.Client
	store  *storage.WorkspaceStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewWorkspaceStore(storage.NewMemory(), zap.NewNop())
	repo, err := workspace.NewRepository(store)
	require.NoError(t, err)

	box := inbox.New()
	client := bridge.NewClient(box, store, bridge.Config{
		FetchTimeout: 100 * time.Millisecond,
		MockDelay:    time.Millisecond,
	}, nil)

	h := NewHandlers(repo, box, client, store, staticConn{}, nil, zap.NewNop())

	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/workspace", h.GetWorkspace)
	router.GET("/workspace/stats", h.WorkspaceStats)
	router.GET("/workspace/export", h.ExportWorkspace)
	router.POST("/workspace/import", h.ImportWorkspace)
	router.POST("/sessions", h.CreateSession)
	router.POST("/sessions/from-tab", h.CreateSessionFromTab)
	router.GET("/sessions/search", h.SearchSessions)
	router.PATCH("/sessions/:id", h.UpdateSession)
	router.DELETE("/sessions/:id", h.DeleteSession)
	router.POST("/sessions/:id/tabs", h.AddTab)
	router.DELETE("/sessions/:id/tabs/:tabId", h.RemoveTab)
	router.GET("/inbox", h.ListInbox)
	router.POST("/inbox/fetch", h.FetchInbox)
	router.DELETE("/inbox/:tabId", h.ConsumeInboxTab)
	router.GET("/bridge/status", h.BridgeStatus)
	router.POST("/bridge/identity", h.SetBridgeIdentity)

	return &testEnv{router: router, repo: repo, inbox: box, client: client, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeWorkspace(t *testing.T, raw json.RawMessage) workspace.Workspace {
	t.Helper()
	var w workspace.Workspace
	require.NoError(t, json.Unmarshal(raw, &w))
	return w
}

func (e *testEnv) createSession(t *testing.T, name string, tags []string) workspace.Session {
	t.Helper()
	w := e.do(t, http.MethodPost, "/sessions", gin.H{"name": name, "tags": tags})
	require.Equal(t, http.StatusCreated, w.Code)
	var s workspace.Session
	require.NoError(t, json.Unmarshal(decode(t, w)["session"], &s))
	return s
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestCreateSessionDefaultsName(t *testing.T) {
	env := newTestEnv(t)

	s := env.createSession(t, "", nil)
	assert.Equal(t, "New Project", s.Name)
	assert.NotEmpty(t, s.ID)
	assert.NotZero(t, s.CreatedAt)

	w := env.do(t, http.MethodGet, "/workspace", nil)
	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID)
}

func TestAddTabDeduplicatesByURL(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Research", nil)

	tab := gin.H{"id": "ext-9", "title": "Example", "url": "https://example.com"}
	w := env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs", tab)
	require.Equal(t, http.StatusOK, w.Code)

	// same URL again, different live id: silently discarded
	w = env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs",
		gin.H{"id": "ext-10", "title": "Example again", "url": "https://example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	require.Len(t, got[0].Tabs, 1)
	assert.Equal(t, "Example", got[0].Tabs[0].Title, "first write wins")
	assert.True(t, strings.HasPrefix(got[0].Tabs[0].ID, "tab_"), "live id must be replaced")
}

func TestAddTabConsumesInboxEntry(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Reading", nil)
	env.inbox.Replace(1, []workspace.Tab{{ID: "ext-1", Title: "Doc", URL: "https://doc.example"}})

	w := env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs",
		gin.H{"id": "ext-1", "title": "Doc", "url": "https://doc.example"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, env.inbox.Len())
}

func TestAddTabRequiresURL(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Research", nil)

	w := env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs", gin.H{"id": "ext-1", "title": "No URL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddTabToAbsentSessionIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "Research", nil)

	w := env.do(t, http.MethodPost, "/sessions/sess_gone/tabs",
		gin.H{"id": "ext-1", "title": "Doc", "url": "https://doc.example"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Tabs)
}

func TestUpdateSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Before", nil)

	w := env.do(t, http.MethodPatch, "/sessions/"+s.ID,
		gin.H{"name": "After", "tags": []string{"Work"}, "x": 10.5, "y": -3.0})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	assert.Equal(t, "After", got[0].Name)
	assert.Equal(t, []string{"Work"}, got[0].Tags)
	require.NotNil(t, got[0].X)
	assert.Equal(t, 10.5, *got[0].X)
}

func TestUpdateAbsentSessionIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Keep", nil)

	w := env.do(t, http.MethodPatch, "/sessions/sess_gone", gin.H{"name": "Changed"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	assert.Equal(t, "Keep", got[0].Name)
	assert.Equal(t, s.ID, got[0].ID)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Doomed", nil)
	env.createSession(t, "Survivor", nil)

	w := env.do(t, http.MethodDelete, "/sessions/"+s.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeWorkspace(t, decode(t, w)["workspace"])
	require.Len(t, got, 1)
	assert.Equal(t, "Survivor", got[0].Name)
}

func TestRemoveTab(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Research", nil)
	env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs",
		gin.H{"id": "ext-1", "title": "Doc", "url": "https://doc.example"})

	w := env.do(t, http.MethodGet, "/workspace", nil)
	got := decodeWorkspace(t, decode(t, w)["workspace"])
	tabID := got[0].Tabs[0].ID

	w = env.do(t, http.MethodDelete, "/sessions/"+s.ID+"/tabs/"+tabID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeWorkspace(t, decode(t, w)["workspace"])
	assert.Empty(t, got[0].Tabs)
}

func TestCreateSessionFromTab(t *testing.T) {
	env := newTestEnv(t)
	env.inbox.Replace(1, []workspace.Tab{{ID: "ext-7", Title: "Drop", URL: "https://drop.example"}})

	w := env.do(t, http.MethodPost, "/sessions/from-tab",
		gin.H{"tab": gin.H{"id": "ext-7", "title": "Drop", "url": "https://drop.example"}})
	require.Equal(t, http.StatusCreated, w.Code)

	var s workspace.Session
	require.NoError(t, json.Unmarshal(decode(t, w)["session"], &s))
	assert.Equal(t, []string{"Workspace"}, s.Tags)
	require.Len(t, s.Tabs, 1)
	assert.True(t, strings.HasPrefix(s.Tabs[0].ID, "tab_"))
	assert.Zero(t, env.inbox.Len(), "drop must consume the inbox entry")
}

func TestSearchSessions(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "Work Research", nil)
	env.createSession(t, "Cooking", []string{"recipes"})

	w := env.do(t, http.MethodGet, "/sessions/search?q=resea", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Sessions []workspace.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Sessions, 1)
	assert.Equal(t, "Work Research", out.Sessions[0].Name)
}

func TestExportWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "Exported", nil)

	w := env.do(t, http.MethodGet, "/workspace/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "tabflow_export_")

	got := decodeWorkspace(t, w.Body.Bytes())
	require.Len(t, got, 1)
	assert.Equal(t, "Exported", got[0].Name)
}

func TestImportRoundTripPreservesIDs(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Original", nil)

	export := env.do(t, http.MethodGet, "/workspace/export", nil)
	require.Equal(t, http.StatusOK, export.Code)
	snapshot := export.Body.Bytes()

	// diverge, then restore from the snapshot
	env.do(t, http.MethodDelete, "/sessions/"+s.ID, nil)
	env.createSession(t, "Unrelated", nil)

	req := httptest.NewRequest(http.MethodPost, "/workspace/import", bytes.NewReader(snapshot))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	got := env.repo.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID, "ids must be preserved verbatim")
	assert.Equal(t, s.CreatedAt, got[0].CreatedAt)
}

func TestImportRejectsNonArrayPayload(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "Keep", nil)

	for _, payload := range []string{`{"sessions":[]}`, `"text"`, `42`, `null`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/workspace/import", strings.NewReader(payload))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %q", payload)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}

	got := env.repo.Snapshot()
	require.Len(t, got, 1, "rejected imports must leave the workspace untouched")
	assert.Equal(t, "Keep", got[0].Name)
}

func TestFetchInboxWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/inbox/fetch", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "bridge_not_configured")
}

func TestInboxListAndConsume(t *testing.T) {
	env := newTestEnv(t)
	env.inbox.Replace(1, []workspace.Tab{
		{ID: "ext-1", Title: "One", URL: "https://one.example"},
		{ID: "ext-2", Title: "Two", URL: "https://two.example"},
	})

	w := env.do(t, http.MethodGet, "/inbox", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ext-2")

	w = env.do(t, http.MethodDelete, "/inbox/ext-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ext-1")
	assert.Equal(t, 1, env.inbox.Len())
}

func TestBridgeIdentityEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/bridge/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(bridge.StateAwaitingHandshake))

	w = env.do(t, http.MethodPost, "/bridge/identity", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/bridge/identity", gin.H{"bridgeId": "ext-manual"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(bridge.StateReady))

	// the identity is persisted alongside the workspace
	stored, err := env.store.LoadBridgeID()
	require.NoError(t, err)
	assert.Equal(t, "ext-manual", stored)
}

func TestWorkspaceStats(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Stats", nil)
	env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs",
		gin.H{"id": "ext-1", "title": "A", "url": "https://a.example/x"})
	env.do(t, http.MethodPost, "/sessions/"+s.ID+"/tabs",
		gin.H{"id": "ext-2", "title": "B", "url": "https://a.example/y"})

	w := env.do(t, http.MethodGet, "/workspace/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats workspace.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 2, stats.Tabs)
	assert.Equal(t, 1, stats.Domains)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "One", nil)
	env.createSession(t, "Two", nil)

	w := env.do(t, http.MethodGet, "/sessions/search", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Sessions []workspace.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Sessions, 2)
}
