package controller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/syncmgr"
	"github.com/mcdev12/doodleduel/go/internal/game/transport"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// MetricsCollector defines the interface for collecting session client metrics
type MetricsCollector interface {
	RecordOptimisticApplied(kind state.UpdateKind)
	RecordOptimisticConfirmed(kind state.UpdateKind, latency time.Duration)
	RecordOptimisticRolledBack(kind state.UpdateKind)
	RecordReconcile(strategy syncmgr.Strategy)
	RecordActionRejected(action string)
	RecordServiceCall(method string, success bool, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordOptimisticApplied(state.UpdateKind)                  {}
func (NoOpMetricsCollector) RecordOptimisticConfirmed(state.UpdateKind, time.Duration) {}
func (NoOpMetricsCollector) RecordOptimisticRolledBack(state.UpdateKind)               {}
func (NoOpMetricsCollector) RecordReconcile(syncmgr.Strategy)                          {}
func (NoOpMetricsCollector) RecordActionRejected(string)                               {}
func (NoOpMetricsCollector) RecordServiceCall(string, bool, time.Duration)             {}

// CountingMetrics keeps in-memory counters. It backs the status endpoint.
type CountingMetrics struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{counters: make(map[string]int)}
}

func (m *CountingMetrics) inc(key string) {
	m.mu.Lock()
	m.counters[key]++
	m.mu.Unlock()
}

func (m *CountingMetrics) RecordOptimisticApplied(kind state.UpdateKind) {
	m.inc("optimistic_applied." + string(kind))
}

func (m *CountingMetrics) RecordOptimisticConfirmed(kind state.UpdateKind, _ time.Duration) {
	m.inc("optimistic_confirmed." + string(kind))
}

func (m *CountingMetrics) RecordOptimisticRolledBack(kind state.UpdateKind) {
	m.inc("optimistic_rolled_back." + string(kind))
}

func (m *CountingMetrics) RecordReconcile(strategy syncmgr.Strategy) {
	m.inc("reconcile." + string(strategy))
}

func (m *CountingMetrics) RecordActionRejected(action string) {
	m.inc("action_rejected." + action)
}

func (m *CountingMetrics) RecordServiceCall(method string, success bool, _ time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.inc("service_call." + method + "." + status)
}

// Count returns the value of a single counter.
func (m *CountingMetrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// Snapshot returns a copy of every counter.
func (m *CountingMetrics) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// MetricService wraps a transport.Service with call metrics
type MetricService struct {
	svc     transport.Service
	metrics MetricsCollector
	clock   clockwork.Clock
}

func NewMetricService(svc transport.Service, metrics MetricsCollector, clock clockwork.Clock) *MetricService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MetricService{svc: svc, metrics: metrics, clock: clock}
}

func (s *MetricService) record(method string, start time.Time, res transport.Result, err error) {
	s.metrics.RecordServiceCall(method, err == nil && res.Success, s.clock.Since(start))
}

func (s *MetricService) JoinSession(ctx context.Context, sessionID, userID string) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.JoinSession(ctx, sessionID, userID)
	s.record("join_session", start, res, err)
	return res, err
}

func (s *MetricService) LeaveSession(ctx context.Context, sessionID, userID string) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.LeaveSession(ctx, sessionID, userID)
	s.record("leave_session", start, res, err)
	return res, err
}

func (s *MetricService) SetReady(ctx context.Context, sessionID, userID string, ready bool) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.SetReady(ctx, sessionID, userID, ready)
	s.record("set_ready", start, res, err)
	return res, err
}

func (s *MetricService) SelectBoosterPack(ctx context.Context, sessionID, userID, packID string) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.SelectBoosterPack(ctx, sessionID, userID, packID)
	s.record("select_booster_pack", start, res, err)
	return res, err
}

func (s *MetricService) SubmitDrawing(ctx context.Context, sessionID, userID string, drawing transport.Drawing) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.SubmitDrawing(ctx, sessionID, userID, drawing)
	s.record("submit_drawing", start, res, err)
	return res, err
}

func (s *MetricService) CastVote(ctx context.Context, sessionID, voterID, submissionID string) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.CastVote(ctx, sessionID, voterID, submissionID)
	s.record("cast_vote", start, res, err)
	return res, err
}

func (s *MetricService) RequestPhaseTransition(ctx context.Context, sessionID string, from, to models.Phase) (transport.Result, error) {
	start := s.clock.Now()
	res, err := s.svc.RequestPhaseTransition(ctx, sessionID, from, to)
	s.record("request_phase_transition", start, res, err)
	return res, err
}

func (s *MetricService) FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error) {
	start := s.clock.Now()
	snap, err := s.svc.FetchSnapshot(ctx, sessionID)
	s.record("fetch_snapshot", start, transport.Result{Success: true}, err)
	return snap, err
}
