package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/game/players"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/syncmgr"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

type stubSource struct {
	state state.SessionState
	timer timer.Snapshot
	sync  syncmgr.Status
}

func (s stubSource) State() state.SessionState  { return s.state.Clone() }
func (s stubSource) Players() *players.Manager  { return players.NewManager(s.state.CurrentUserID, s.state) }
func (s stubSource) SyncStatus() syncmgr.Status { return s.sync }
func (s stubSource) Timer() timer.Snapshot      { return s.timer }

type stubMetrics map[string]int

func (m stubMetrics) Snapshot() map[string]int { return m }

func waitingSource() stubSource {
	s := state.New("alice")
	s.Session = &models.Session{ID: "sess-1", Phase: models.PhaseWaiting}
	s.Participants = []models.Participant{
		{ID: "p1", SessionID: "sess-1", UserID: "alice", DisplayName: "Alice", IsReady: true},
		{ID: "p2", SessionID: "sess-1", UserID: "bob", DisplayName: "Bob"},
	}
	s.IsReady = true
	return stubSource{
		state: s,
		timer: timer.Snapshot{Status: timer.StatusIdle, Formatted: "00:00"},
		sync:  syncmgr.Status{PendingUpdates: 1, LastSync: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func get(t *testing.T, h http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	h := NewHandler(waitingSource(), Options{})

	var resp StatusResponse
	rec := get(t, h, "/status", &resp)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, models.PhaseWaiting, resp.Phase)
	assert.Equal(t, 1, resp.Sync.PendingUpdates)
	assert.Equal(t, timer.StatusIdle, resp.Timer.Status)
	require.NotNil(t, resp.Next)
	assert.Equal(t, models.PhaseBriefing, resp.Next.Phase)
	assert.False(t, resp.Next.Allowed)
	assert.NotEmpty(t, resp.Next.Reason)
}

func TestStatusCompletedHasNoNext(t *testing.T) {
	src := waitingSource()
	src.state.Session.Phase = models.PhaseCompleted

	var resp StatusResponse
	get(t, NewHandler(src, Options{}), "/status", &resp)
	assert.Nil(t, resp.Next)
}

func TestPlayersEndpoint(t *testing.T) {
	var resp PlayersResponse
	get(t, NewHandler(waitingSource(), Options{}), "/players", &resp)

	require.NotNil(t, resp.Current)
	assert.Equal(t, "alice", resp.Current.UserID)
	assert.True(t, resp.Current.IsCurrentUser)
	assert.Len(t, resp.Players, 2)
	assert.False(t, resp.CanStart.CanStart)
	assert.Equal(t, "waiting for all players to be ready", resp.CanStart.Reason)
	assert.Equal(t, 2, resp.Readiness.Total)
	assert.Equal(t, 1, resp.Readiness.Count)
}

func TestStateAndMetricsEndpoints(t *testing.T) {
	h := NewHandler(waitingSource(), Options{Metrics: stubMetrics{"reconcile.merge": 3}})

	var s state.SessionState
	get(t, h, "/state", &s)
	assert.Equal(t, "alice", s.CurrentUserID)
	assert.Len(t, s.Participants, 2)

	var counts map[string]int
	get(t, h, "/metrics", &counts)
	assert.Equal(t, 3, counts["reconcile.merge"])

	counts = nil
	get(t, NewHandler(waitingSource(), Options{}), "/metrics", &counts)
	assert.Empty(t, counts)
}

type stubFeed bool

func (f stubFeed) IsConnected() bool { return bool(f) }

func TestHealthEndpoint(t *testing.T) {
	var health HealthStatus
	get(t, NewHandler(waitingSource(), Options{Feed: stubFeed(true)}), "/health", &health)
	assert.True(t, health.Healthy)
	require.NotNil(t, health.FeedConnected)
	assert.True(t, *health.FeedConnected)
	assert.Empty(t, health.Errors)

	cases := []struct {
		name   string
		src    func() stubSource
		feed   ConnectionChecker
		errors int
	}{
		{"feed down", waitingSource, stubFeed(false), 1},
		{"out of sync", func() stubSource {
			src := waitingSource()
			src.sync.IsOutOfSync = true
			return src
		}, nil, 1},
		{"both", func() stubSource {
			src := waitingSource()
			src.sync.IsOutOfSync = true
			return src
		}, stubFeed(false), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(tc.src(), Options{Feed: tc.feed}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

			var health HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.False(t, health.Healthy)
			assert.Len(t, health.Errors, tc.errors)
		})
	}
}

func TestServerAppliesCORS(t *testing.T) {
	srv := NewServer(waitingSource(), Options{
		Addr:           ":0",
		AllowedOrigins: []string{"https://dash.example"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dash.example")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
