package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"fieldops/internal/identity"
	"fieldops/internal/realtime"
	"fieldops/internal/report"
	"fieldops/internal/store"
	"fieldops/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	registry *realtime.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "fieldops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)
	ident := identity.NewService(st, identity.NewTokenIssuer("test-secret", time.Hour))
	tasks := task.NewService(st, dispatcher)
	reports := report.NewGenerator(st, filepath.Join(dir, "reports"))

	srv := New(ident, tasks, st, reports, registry)
	return &testEnv{router: srv.Router(), store: st, registry: registry}
}

// waitForHandles blocks until the registry holds n live handles.
func (e *testEnv) waitForHandles(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.registry.Count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("registry has %d handles, want %d", e.registry.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// do performs a JSON request and decodes the response body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

// register creates an account and returns (userID, token).
func (e *testEnv) register(t *testing.T, username, role string) (int64, string) {
	t.Helper()
	w, body := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, w.Code, "register %s: %s", username, w.Body.String())
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	return int64(user["id"].(float64)), data["token"].(string)
}

func (e *testEnv) createTask(t *testing.T, token string, draft gin.H) int64 {
	t.Helper()
	w, body := e.do(t, http.MethodPost, "/api/tasks", token, draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tsk := body["data"].(map[string]any)["task"].(map[string]any)
	return int64(tsk["id"].(float64))
}

func validDraft() gin.H {
	return gin.H{
		"title":    "Spill on aisle 3",
		"location": gin.H{"latitude": 52.52, "longitude": 13.405},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "maria", "requester")

	w, body := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "maria", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, body["data"].(map[string]any)["token"])

	w, _ = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "maria", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "maria", "requester")

	w, _ := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "maria", "password": "password123", "role": "executor",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "password": "short", "role": "executor",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "password": "password123", "role": "superuser",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.do(t, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/tasks", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDispatcherOnlyEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, executorTok := e.register(t, "jonas", "executor")
	_, adminTok := e.register(t, "admin", "dispatcher")

	for _, path := range []string{"/api/auth/users", "/api/generate-report"} {
		w, _ := e.do(t, http.MethodGet, path, executorTok, nil)
		require.Equal(t, http.StatusForbidden, w.Code, path)

		w, _ = e.do(t, http.MethodGet, path, adminTok, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestUserAdministration(t *testing.T) {
	e := newTestEnv(t)
	adminID, adminTok := e.register(t, "admin", "dispatcher")
	workerID, _ := e.register(t, "jonas", "executor")
	e.register(t, "maria", "requester")

	w, body := e.do(t, http.MethodGet, "/api/auth/users?role=executor", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := body["data"].(map[string]any)["users"].([]any)
	require.Len(t, users, 1)

	// Dispatchers never delete themselves.
	w, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", adminID), adminTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", workerID), adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodDelete, "/api/auth/users/999", adminTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTask(t *testing.T) {
	e := newTestEnv(t)
	requesterID, requesterTok := e.register(t, "maria", "requester")
	_, executorTok := e.register(t, "jonas", "executor")
	_, adminTok := e.register(t, "admin", "dispatcher")

	// Requesters self-assign.
	w, body := e.do(t, http.MethodPost, "/api/tasks", requesterTok, validDraft())
	require.Equal(t, http.StatusCreated, w.Code)
	tsk := body["data"].(map[string]any)["task"].(map[string]any)
	require.Equal(t, "new", tsk["status"])
	require.Equal(t, float64(requesterID), tsk["assigned_to"])

	// Executors cannot create.
	w, _ = e.do(t, http.MethodPost, "/api/tasks", executorTok, validDraft())
	require.Equal(t, http.StatusForbidden, w.Code)

	// Dispatcher naming an unknown assignee gets a 404.
	draft := validDraft()
	draft["assigned_to"] = 999
	w, _ = e.do(t, http.MethodPost, "/api/tasks", adminTok, draft)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Out-of-range coordinates are a validation failure.
	bad := gin.H{"title": "x", "location": gin.H{"latitude": 91.0, "longitude": 0.0}}
	w, _ = e.do(t, http.MethodPost, "/api/tasks", requesterTok, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	_, requesterTok := e.register(t, "maria", "requester")
	executorID, executorTok := e.register(t, "jonas", "executor")

	id := e.createTask(t, requesterTok, validDraft())

	// Executor picks the task up; it reassigns to them.
	w, body := e.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), executorTok, gin.H{
		"status": "in_progress",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tsk := body["data"].(map[string]any)["task"].(map[string]any)
	require.Equal(t, "in_progress", tsk["status"])
	require.Equal(t, float64(executorID), tsk["assigned_to"])

	// new -> completed skips a state: rejected.
	id2 := e.createTask(t, requesterTok, validDraft())
	w, body = e.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id2), executorTok, gin.H{
		"status": "completed",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, body["message"], "invalid status transition")

	// Complete the first task, then verify it is frozen.
	w, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), executorTok, gin.H{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = e.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), executorTok, gin.H{
		"status": "in_progress",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "cannot modify completed tasks", body["message"])

	// Unknown task.
	w, _ = e.do(t, http.MethodPatch, "/api/tasks/999", executorTok, gin.H{"status": "in_progress"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskIncludesAuditTrail(t *testing.T) {
	e := newTestEnv(t)
	_, requesterTok := e.register(t, "maria", "requester")
	_, executorTok := e.register(t, "jonas", "executor")

	id := e.createTask(t, requesterTok, validDraft())
	w, _ := e.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), executorTok, gin.H{
		"status": "in_progress",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := e.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	logs := data["logs"].([]any)
	require.Len(t, logs, 2)
	// Newest first.
	first := logs[0].(map[string]any)
	require.Equal(t, "in_progress", first["status"])

	w, body = e.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d/logs", id), requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["data"].(map[string]any)["logs"].([]any), 2)

	w, _ = e.do(t, http.MethodGet, "/api/tasks/999", requesterTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSync(t *testing.T) {
	e := newTestEnv(t)
	_, requesterTok := e.register(t, "maria", "requester")

	// Fresh database: counter is 0, matching client gets 304.
	w, _ := e.do(t, http.MethodGet, "/api/tasks/sync?version=0", requesterTok, nil)
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Zero(t, w.Body.Len())

	e.createTask(t, requesterTok, validDraft())

	// Stale client gets the full set plus the new version.
	w, body := e.do(t, http.MethodGet, "/api/tasks/sync?version=0", requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), body["version"])
	require.Equal(t, true, body["needs_sync"])
	require.Len(t, body["tasks"].([]any), 1)

	// Caught-up client gets 304 again.
	w, _ = e.do(t, http.MethodGet, "/api/tasks/sync?version=1", requesterTok, nil)
	require.Equal(t, http.StatusNotModified, w.Code)

	// Garbage version is treated as 0: full resend.
	w, _ = e.do(t, http.MethodGet, "/api/tasks/sync?version=abc", requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReports(t *testing.T) {
	e := newTestEnv(t)
	_, requesterTok := e.register(t, "maria", "requester")
	_, adminTok := e.register(t, "admin", "dispatcher")
	e.createTask(t, requesterTok, validDraft())

	w, body := e.do(t, http.MethodGet, "/api/generate-report", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	name := body["data"].(map[string]any)["report"].(string)
	require.True(t, strings.HasPrefix(name, "report-"))

	// Future dates are rejected.
	future := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	w, _ = e.do(t, http.MethodGet, "/api/generate-report?date="+future, adminTok, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, body = e.do(t, http.MethodGet, "/api/reports", requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := body["data"].(map[string]any)["reports"].([]any)
	require.Len(t, listed, 1)
	entry := listed[0].(map[string]any)
	require.Equal(t, name, entry["name"])
	require.Greater(t, entry["size"].(float64), float64(0))
	require.NotEmpty(t, entry["modified_time"])

	w, _ = e.do(t, http.MethodGet, "/api/reports/"+name, requesterTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Field Operations Daily Report")

	w, _ = e.do(t, http.MethodGet, "/api/reports/absent.txt", requesterTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebsocketReceivesBroadcasts(t *testing.T) {
	e := newTestEnv(t)
	_, requesterTok := e.register(t, "maria", "requester")

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + requesterTok

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()
	// The handle joins the registry just after the handshake completes.
	e.waitForHandles(t, 1)

	e.createTask(t, requesterTok, validDraft())

	// The self-assigned creator receives both the broadcast and the
	// targeted notification, in dispatch order.
	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
		var ev map[string]any
		require.NoError(t, ws.ReadJSON(&ev))
		types[ev["type"].(string)] = true
		if ev["type"] == "task_update" {
			require.Equal(t, float64(1), ev["version"])
			require.NotNil(t, ev["task"])
		}
	}
	require.True(t, types["task_update"])
	require.True(t, types["notification"])
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	var ev map[string]any
	require.NoError(t, ws.ReadJSON(&ev))
	require.Equal(t, "error", ev["type"])

	// The server closes after the error payload.
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
}
