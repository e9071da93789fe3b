// Package statusapi serves a read-only JSON view of a running session
// client for dashboards and QA tooling.
package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/doodleduel/go/internal/game/phase"
	"github.com/mcdev12/doodleduel/go/internal/game/players"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/syncmgr"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Source is the session being reported on. *controller.Controller
// satisfies it.
type Source interface {
	State() state.SessionState
	Players() *players.Manager
	SyncStatus() syncmgr.Status
	Timer() timer.Snapshot
}

// MetricsSource exposes counters, e.g. *controller.CountingMetrics.
type MetricsSource interface {
	Snapshot() map[string]int
}

type StatusResponse struct {
	SessionID string         `json:"session_id"`
	Phase     models.Phase   `json:"phase"`
	Timer     timer.Snapshot `json:"timer"`
	Sync      syncmgr.Status `json:"sync"`
	Next      *NextPhase     `json:"next,omitempty"`
	Loading   bool           `json:"is_loading"`
	Error     string         `json:"error,omitempty"`
}

// NextPhase reports whether the session may move on.
type NextPhase struct {
	Phase   models.Phase `json:"phase"`
	Allowed bool         `json:"allowed"`
	Reason  string       `json:"reason,omitempty"`
}

type PlayersResponse struct {
	Current     *players.PlayerState  `json:"current,omitempty"`
	Players     []players.PlayerState `json:"players"`
	CanStart    players.StartCheck    `json:"can_start"`
	Readiness   players.Summary       `json:"readiness"`
	Submissions players.Summary       `json:"submissions"`
	Votes       players.Summary       `json:"votes"`
	Packs       players.Summary       `json:"booster_packs"`
}

// ConnectionChecker reports realtime connectivity, e.g. *realtime.NATSFeed.
type ConnectionChecker interface {
	IsConnected() bool
}

type HealthStatus struct {
	Healthy       bool      `json:"healthy"`
	LastSync      time.Time `json:"last_sync"`
	OutOfSync     bool      `json:"out_of_sync"`
	FeedConnected *bool     `json:"feed_connected,omitempty"`
	Errors        []string  `json:"errors"`
}

type Options struct {
	Addr           string
	AllowedOrigins []string
	Metrics        MetricsSource
	Feed           ConnectionChecker
}

// NewServer builds the status HTTP server. The caller runs ListenAndServe.
func NewServer(src Source, opts Options) *http.Server {
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: opts.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:         opts.Addr,
		Handler:      h2c.NewHandler(c.Handler(NewHandler(src, opts)), &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// NewHandler routes the status endpoints. opts.Metrics and opts.Feed may be
// nil.
func NewHandler(src Source, opts Options) http.Handler {
	mux := http.NewServeMux()
	metrics := opts.Metrics

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := checkHealth(src.SyncStatus(), opts.Feed)
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSONStatus(w, code, status)
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		s := src.State()
		resp := StatusResponse{
			SessionID: s.SessionID(),
			Phase:     s.Phase(),
			Timer:     src.Timer(),
			Sync:      src.SyncStatus(),
			Loading:   s.IsLoading,
			Error:     s.Error,
		}
		if to, d, ok := phase.CanAdvance(s); ok {
			resp.Next = &NextPhase{Phase: to, Allowed: d.Allowed, Reason: d.Reason}
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("GET /players", func(w http.ResponseWriter, r *http.Request) {
		m := src.Players()
		resp := PlayersResponse{
			Players:     m.AllPlayersState(),
			CanStart:    m.CanGameStart(),
			Readiness:   m.ReadinessSummary(),
			Submissions: m.SubmissionSummary(),
			Votes:       m.VotingSummary(),
			Packs:       m.BoosterPackSummary(),
		}
		if current, ok := m.CurrentPlayerState(); ok {
			resp.Current = &current
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, src.State())
	})

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		if metrics == nil {
			writeJSON(w, map[string]int{})
			return
		}
		writeJSON(w, metrics.Snapshot())
	})

	return mux
}

func checkHealth(sync syncmgr.Status, feed ConnectionChecker) HealthStatus {
	status := HealthStatus{
		Healthy:   true,
		LastSync:  sync.LastSync,
		OutOfSync: sync.IsOutOfSync,
		Errors:    []string{},
	}

	if sync.IsOutOfSync {
		status.Healthy = false
		status.Errors = append(status.Errors, "no successful sync within the out-of-sync window")
	}

	if feed != nil {
		connected := feed.IsConnected()
		status.FeedConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "realtime feed disconnected")
		}
	}
	return status
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}
