package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-manager/internal/game"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

func newTestServer(t *testing.T, board *game.StatusBoard) *RestServer {
	t.Helper()
	return NewRestServer(Config{Status: board, Registry: prometheus.NewRegistry(), Version: "test"})
}

func get(t *testing.T, rs *RestServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rs.Handler().ServeHTTP(w, req)
	return w
}

func publishedBoard() *game.StatusBoard {
	board := game.NewStatusBoard()
	board.Publish(&game.Status{
		Tick:      42,
		Width:     800,
		Height:    600,
		Actors:    2,
		Heroes:    1,
		Clients:   3,
		UpdatedAt: time.Now(),
		States: []events.ActorState{
			{ActorID: 101, ActorType: "hero", IsHero: true, Health: 20},
			{ActorID: 102, ActorType: "creep", Health: 5},
		},
	})
	return board
}

func TestHealth_StartingThenOK(t *testing.T) {
	board := game.NewStatusBoard()
	rs := newTestServer(t, board)

	w := get(t, rs, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "до первого тика сервер не готов")

	board.Publish(&game.Status{Tick: 1})
	w = get(t, rs, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"), "каждый ответ несёт trace-id")
}

func TestWorldEndpoint(t *testing.T) {
	rs := newTestServer(t, publishedBoard())

	w := get(t, rs, "/api/world")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    game.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(42), resp.Data.Tick)
	assert.Len(t, resp.Data.States, 2)
}

func TestActorEndpoint(t *testing.T) {
	rs := newTestServer(t, publishedBoard())

	w := get(t, rs, "/api/actors/102")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"creep"`)

	assert.Equal(t, http.StatusNotFound, get(t, rs, "/api/actors/999").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, rs, "/api/actors/abc").Code)
}

func TestStatsEndpoint(t *testing.T) {
	rs := newTestServer(t, publishedBoard())

	w := get(t, rs, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Server ProcessStats   `json:"server"`
			Game   map[string]any `json:"game"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.Data.Server.Goroutines, 0)
	assert.EqualValues(t, 3, resp.Data.Game["clients"])
}

func TestMetricsEndpoint_ServesRegistry(t *testing.T) {
	rs := newTestServer(t, publishedBoard())

	get(t, rs, "/health")
	w := get(t, rs, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "admin_api_http_request_duration_seconds"),
		"метрики HTTP попадают в переданный регистр")
}
