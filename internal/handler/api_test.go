package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/models/memory"
	"multiblock/internal/handler/sse"
	"multiblock/internal/httputil"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/service"
	"multiblock/internal/service/invalidation"
)

const testUserHeader = "X-Test-User"

type api struct {
	t       *testing.T
	handler http.Handler
	hub     *invalidation.Hub
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repos := service.NewInMemRepositories(inmem.NewStore())
	services := service.SetupServices(t.Context(), repos, config.DefaultComposerSettings(),
		invalidation.DefaultBreakerSettings(), nil, nil, logger)
	t.Cleanup(services.Hub.Close)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		Boards:        NewBoardHandler(services.Blocks, logger),
		Connections:   NewConnectionHandler(services.Graph, services.Authorizer, logger),
		Memory:        NewMemoryHandler(services.Memory, logger),
		Context:       NewContextHandler(services.Blocks, services.Composer, services.Assembler, services.Responder, logger),
		Subscriptions: NewSubscriptionHandler(services.Hub, &sse.Config{KeepAliveInterval: time.Hour}, logger),
	}, true)

	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, httputil.WithUserID(r, r.Header.Get(testUserHeader)))
	})

	return &api{t: t, handler: withUser, hub: services.Hub}
}

func (a *api) do(method, path, user string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(testUserHeader, user)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seed creates a board with blocks X and Y and returns their ids
func (a *api) seed(user string) (boardID, x, y string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/boards", user, map[string]string{"title": "Board"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	boardID = decode[canvas.Board](a.t, rec).ID

	ids := make([]string, 0, 2)
	for _, title := range []string{"X", "Y"} {
		rec := a.do(http.MethodPost, "/api/boards/"+boardID+"/blocks", user, map[string]string{"title": title, "model": "claude-haiku-4-5"})
		require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[canvas.Block](a.t, rec).ID)
	}
	return boardID, ids[0], ids[1]
}

func TestHealthCheck(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_ComposeThroughConnection(t *testing.T) {
	a := newAPI(t)
	_, x, y := a.seed("user-1")

	rec := a.do(http.MethodPost, "/api/connections", "user-1", map[string]string{
		"from_block": x, "to_block": y, "transform_template": "Context: {{output}}",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/blocks/"+x+"/messages", "user-1", map[string]string{"role": "assistant", "content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/blocks/"+y+"/context", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	composed := decode[canvas.ComposedContext](t, rec)
	require.Len(t, composed.BlockContexts, 1)
	assert.Equal(t, "Context: hello", composed.BlockContexts[0].Content)
	assert.Contains(t, composed.Content, "## Context from X")

	rec = a.do(http.MethodGet, "/debug/api/blocks/"+y+"/llm-request", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Context: hello")

	rec = a.do(http.MethodPost, "/api/blocks/"+y+"/respond", "user-1", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestAPI_ConnectionErrors(t *testing.T) {
	a := newAPI(t)
	_, x, y := a.seed("user-1")
	_, foreign, _ := a.seed("user-2")

	tests := []struct {
		name  string
		body  map[string]string
		want  int
		extra map[string]any
	}{
		{"self loop", map[string]string{"from_block": x, "to_block": x}, http.StatusBadRequest, map[string]any{"block_id": x}},
		{"foreign target", map[string]string{"from_block": x, "to_block": foreign}, http.StatusForbidden, map[string]any{"resource_type": "block", "resource_id": foreign}},
		{"bad context type", map[string]string{"from_block": x, "to_block": y, "context_type": "verbatim"}, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/connections", "user-1", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			problem := decode[map[string]any](t, rec)
			assert.InDelta(t, float64(tt.want), problem["status"], 0)
			for k, v := range tt.extra {
				assert.Equal(t, v, problem[k], k)
			}
		})
	}
}

func TestAPI_ConnectionLifecycle(t *testing.T) {
	a := newAPI(t)
	_, x, y := a.seed("user-1")

	rec := a.do(http.MethodPost, "/api/connections", "user-1", map[string]string{"from_block": x, "to_block": y})
	require.Equal(t, http.StatusCreated, rec.Code)
	conn := decode[canvas.Connection](t, rec)

	rec = a.do(http.MethodPatch, "/api/connections/"+conn.ID, "user-2", map[string]string{"context_type": "summary"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPatch, "/api/connections/"+conn.ID, "user-1", map[string]string{"context_type": "summary"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodPost, "/api/connections/"+conn.ID+"/toggle", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[canvas.Connection](t, rec)
	assert.False(t, toggled.Enabled)
	assert.Equal(t, canvas.ContextTypeSummary, toggled.ContextType)

	rec = a.do(http.MethodPost, "/api/connections/bidirectional", "user-1", map[string]string{"block_a": x, "block_b": y})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodPost, "/api/connections/bidirectional", "user-1", map[string]string{"block_a": x, "block_b": y})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bidirectional":true}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/blocks/"+y+"/connections/outgoing", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]canvas.Connection](t, rec), 1)

	rec = a.do(http.MethodDelete, "/api/connections/"+conn.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/blocks/"+y+"/connections/incoming", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]canvas.Connection](t, rec))
}

func TestAPI_PathValidation(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"malformed block id", http.MethodGet, "/api/blocks/not-a-uuid", http.StatusBadRequest},
		{"unknown block", http.MethodGet, "/api/blocks/6a0c3a0e-7d1f-4a4e-9a50-0b9a3e0d8c11", http.StatusNotFound},
		{"unknown subscription", http.MethodGet, "/api/subscriptions/6a0c3a0e-7d1f-4a4e-9a50-0b9a3e0d8c11/notices", http.StatusNotFound},
		{"unknown connection toggle", http.MethodPost, "/api/connections/6a0c3a0e-7d1f-4a4e-9a50-0b9a3e0d8c11/toggle", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(tt.method, tt.path, "user-1", nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_Messages(t *testing.T) {
	a := newAPI(t)
	_, x, _ := a.seed("user-1")

	for _, content := range []string{"one", "two", "three"} {
		rec := a.do(http.MethodPost, "/api/blocks/"+x+"/messages", "user-1", map[string]string{"role": "user", "content": content})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := a.do(http.MethodGet, "/api/blocks/"+x+"/messages?limit=2", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]canvas.Message](t, rec)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)

	rec = a.do(http.MethodGet, "/api/blocks/"+x+"/messages?limit=-1", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/messages/"+msgs[1].ID, "user-1", map[string]string{"content": "THREE"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "THREE", decode[canvas.Message](t, rec).Content)

	rec = a.do(http.MethodGet, "/api/blocks/"+x+"/messages", "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_Memory(t *testing.T) {
	a := newAPI(t)
	boardID, x, _ := a.seed("user-1")

	rec := a.do(http.MethodPost, "/api/boards/"+boardID+"/memory", "user-1", map[string]string{
		"type": "constraint", "scope": "board", "content": "Budget is fixed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[memory.Item](t, rec)

	rec = a.do(http.MethodPost, "/api/blocks/"+x+"/messages", "user-1", map[string]string{"role": "assistant", "content": "Ship it Monday"})
	require.Equal(t, http.StatusCreated, rec.Code)
	msg := decode[canvas.Message](t, rec)

	rec = a.do(http.MethodPost, "/api/messages/"+msg.ID+"/memory", "user-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[memory.Item](t, rec)
	assert.Equal(t, memory.TypeNote, saved.Type)
	assert.Equal(t, memory.ScopeBlock, saved.Scope)

	rec = a.do(http.MethodPost, "/api/boards/"+boardID+"/memory/preview", "user-1", map[string]any{"types": []string{"constraint"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[memory.InjectedResult](t, rec)
	require.Len(t, preview.IncludedItems, 1)
	assert.Equal(t, item.ID, preview.IncludedItems[0].ID)

	rec = a.do(http.MethodPatch, "/api/memory/"+item.ID, "user-1", map[string]string{"content": "Budget may grow"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Budget may grow", decode[memory.Item](t, rec).Content)

	rec = a.do(http.MethodDelete, "/api/memory/"+item.ID, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, "/api/memory/"+item.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/boards/"+boardID+"/memory", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]memory.Item](t, rec), 1)
}

func TestAPI_Subscriptions(t *testing.T) {
	a := newAPI(t)
	boardID, x, y := a.seed("user-1")

	rec := a.do(http.MethodPost, "/api/connections", "user-1", map[string]string{"from_block": x, "to_block": y})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodPost, "/api/boards/"+boardID+"/subscriptions", "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/boards/"+boardID+"/subscriptions", "user-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	started := decode[map[string]string](t, rec)
	assert.Equal(t, string(invalidation.StateSubscribed), started["state"])
	subID := started["id"]

	rec = a.do(http.MethodPost, "/api/blocks/"+x+"/messages", "user-1", map[string]string{"role": "assistant", "content": "fresh"})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Eventually(t, func() bool {
		rec := a.do(http.MethodGet, "/api/subscriptions/"+subID+"/notices", "user-1", nil)
		return rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), y)
	}, 2*time.Second, 10*time.Millisecond)

	rec = a.do(http.MethodGet, "/api/subscriptions/"+subID+"/notices", "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, "/api/subscriptions/"+subID, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(invalidation.StateInactive), decode[map[string]string](t, rec)["state"])
	assert.Zero(t, a.hub.Len())
}

func TestAPI_StreamReplaysRecentNotices(t *testing.T) {
	a := newAPI(t)
	boardID, x, y := a.seed("user-1")

	rec := a.do(http.MethodPost, "/api/connections", "user-1", map[string]string{"from_block": x, "to_block": y})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodPost, "/api/boards/"+boardID+"/subscriptions", "user-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	subID := decode[map[string]string](t, rec)["id"]

	rec = a.do(http.MethodPost, "/api/blocks/"+x+"/messages", "user-1", map[string]string{"role": "assistant", "content": "fresh"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := a.hub.Get(subID)
	require.Eventually(t, func() bool { return len(sub.Recent()) > 0 }, 2*time.Second, 10*time.Millisecond)

	server := httptest.NewServer(a.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/subscriptions/"+subID+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set(testUserHeader, "user-1")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: "+invalidation.EventContextStale, scanner.Text())
	require.True(t, scanner.Scan())
	assert.True(t, strings.HasPrefix(scanner.Text(), "data: "))
	assert.Contains(t, scanner.Text(), y)
}
