package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

type fakeBroadcaster struct {
	mu        sync.Mutex
	connected bool
	err       error
	sent      []events.TimerSyncPayload
}

func (b *fakeBroadcaster) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroadcaster) BroadcastTimer(_ context.Context, p events.TimerSyncPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, p)
	return b.err
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func newTestEngine(cfg Config, b Broadcaster) (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	e := NewEngine(clock, cfg, b)
	return e, clock
}

func ticks(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestTimerNeverGoesNegative(t *testing.T) {
	e, _ := newTestEngine(Config{}, nil)
	defer e.Stop()

	e.Start(10, models.PhaseDrawing)
	ticks(e, 10)
	snap := e.Snapshot()
	assert.Equal(t, 0, snap.Remaining)
	assert.True(t, snap.Expired())

	ticks(e, 5)
	assert.Equal(t, 0, e.Snapshot().Remaining)
}

func TestTimerFormattedTime(t *testing.T) {
	e, _ := newTestEngine(Config{}, nil)
	defer e.Stop()

	e.Start(125, models.PhaseDrawing)
	ticks(e, 65)
	assert.Equal(t, "01:00", e.Snapshot().Formatted)
}

func TestTimerWarningLevels(t *testing.T) {
	thresholds, err := ThresholdsFrom([]int{60, 30, 10})
	require.NoError(t, err)

	e, _ := newTestEngine(Config{Thresholds: thresholds}, nil)
	defer e.Stop()

	var levels []WarningLevel
	e.OnWarning(func(s Snapshot) { levels = append(levels, s.Level) })

	e.Start(120, models.PhaseDrawing)
	ticks(e, 90)
	assert.Equal(t, WarningMedium, e.Snapshot().Level)

	ticks(e, 25)
	assert.Equal(t, WarningHigh, e.Snapshot().Level)
	assert.Equal(t, []WarningLevel{WarningLow, WarningMedium, WarningHigh}, levels)
}

func TestTimerExpiryCallbacks(t *testing.T) {
	cases := []struct {
		name       string
		autoSubmit bool
		submitted  bool
		wantAuto   int
	}{
		{name: "auto submit when not submitted", autoSubmit: true, wantAuto: 1},
		{name: "no auto submit after submitting", autoSubmit: true, submitted: true, wantAuto: 0},
		{name: "auto submit disabled", autoSubmit: false, wantAuto: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestEngine(Config{AutoSubmitOnExpiry: tc.autoSubmit}, nil)
			defer e.Stop()

			expired, auto := 0, 0
			e.OnExpire(func(Snapshot) { expired++ })
			e.OnAutoSubmit(func(Snapshot) { auto++ })

			e.Start(3, models.PhaseDrawing)
			e.SetSubmitted(tc.submitted)
			ticks(e, 5)

			assert.Equal(t, 1, expired)
			assert.Equal(t, tc.wantAuto, auto)
		})
	}
}

func TestTimerPauseResumeStopReset(t *testing.T) {
	e, _ := newTestEngine(Config{}, nil)

	e.Start(30, models.PhaseVoting)
	ticks(e, 5)

	e.Pause()
	ticks(e, 5)
	assert.Equal(t, 25, e.Snapshot().Remaining)
	assert.Equal(t, StatusPaused, e.Snapshot().Status)

	e.Resume()
	ticks(e, 5)
	assert.Equal(t, 20, e.Snapshot().Remaining)

	e.Stop()
	ticks(e, 5)
	snap := e.Snapshot()
	assert.Equal(t, 20, snap.Remaining)
	assert.Equal(t, StatusStopped, snap.Status)

	e.Reset()
	snap = e.Snapshot()
	assert.Equal(t, Snapshot{Status: StatusIdle, Level: WarningNone, Formatted: "00:00"}, snap)
}

func TestTimerSyncOverridesLocalCountdown(t *testing.T) {
	e, _ := newTestEngine(Config{SessionID: "s1", SenderID: "alice"}, nil)
	defer e.Stop()

	var synced []Snapshot
	e.OnSync(func(s Snapshot) { synced = append(synced, s) })

	e.Start(90, models.PhaseDrawing)
	ticks(e, 3)
	e.Sync(40, 90)
	assert.Equal(t, 40, e.Snapshot().Remaining)
	require.Len(t, synced, 1)

	assert.False(t, e.ApplySync(events.TimerSyncPayload{SessionID: "s1", SenderID: "alice", Phase: models.PhaseDrawing, Remaining: 10, Total: 90}))
	assert.False(t, e.ApplySync(events.TimerSyncPayload{SessionID: "s1", SenderID: "bob", Phase: models.PhaseVoting, Remaining: 10, Total: 90}))
	assert.False(t, e.ApplySync(events.TimerSyncPayload{SessionID: "s2", SenderID: "bob", Phase: models.PhaseDrawing, Remaining: 10, Total: 90}))
	assert.True(t, e.ApplySync(events.TimerSyncPayload{SessionID: "s1", SenderID: "bob", Phase: models.PhaseDrawing, Remaining: 10, Total: 90}))
	assert.Equal(t, 10, e.Snapshot().Remaining)

	e.Sync(-4, 0)
	assert.Equal(t, 0, e.Snapshot().Remaining)
}

func TestTimerListenersUnsubscribe(t *testing.T) {
	e, _ := newTestEngine(Config{}, nil)
	defer e.Stop()

	var a, b int
	unsubA := e.OnTick(func(Snapshot) { a++ })
	e.OnTick(func(Snapshot) { b++ })

	e.Start(10, models.PhaseBriefing)
	e.Tick()
	unsubA()
	e.Tick()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestTimerTicksOnClock(t *testing.T) {
	e, clock := newTestEngine(Config{}, nil)
	defer e.Stop()

	e.Start(10, models.PhaseDrawing)
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return e.Snapshot().Remaining < 10
	}, time.Second, 5*time.Millisecond)
}

func TestTimerBroadcast(t *testing.T) {
	b := &fakeBroadcaster{connected: true}
	e, clock := newTestEngine(Config{SessionID: "s1", SenderID: "alice"}, b)
	defer e.Stop()

	e.Broadcast(context.Background())
	assert.Equal(t, 0, b.count(), "idle engine does not broadcast")

	e.Start(60, models.PhaseDrawing)
	e.Broadcast(context.Background())
	require.Equal(t, 1, b.count())
	assert.Equal(t, "alice", b.sent[0].SenderID)
	assert.Equal(t, 60, b.sent[0].Remaining)

	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	e.Broadcast(context.Background())
	assert.Equal(t, 1, b.count())

	b.mu.Lock()
	b.connected = true
	b.err = errors.New("publish failed")
	b.mu.Unlock()
	e.Broadcast(context.Background())
	assert.Equal(t, 2, b.count(), "failures are swallowed")

	require.Eventually(t, func() bool {
		clock.Advance(DefaultBroadcastInterval)
		return b.count() > 2
	}, time.Second, 5*time.Millisecond)
}

func TestThresholdsFrom(t *testing.T) {
	th, err := ThresholdsFrom([]int{10, 60, 30})
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds, th)

	_, err = ThresholdsFrom([]int{10, 10, 30})
	assert.Error(t, err)

	_, err = ThresholdsFrom([]int{10})
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		9:    "00:09",
		60:   "01:00",
		125:  "02:05",
		3600: "60:00",
		-12:  "00:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTime(in), "FormatTime(%d)", in)
	}
}
