// Package timer implements the per-phase countdown. Local ticks keep the
// display moving; Sync corrections from the server or peers always win.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
	"github.com/mcdev12/doodleduel/go/internal/game/observer"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Clock is the subset of clockwork.Clock the engine uses.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Broadcaster publishes the local countdown to peers.
type Broadcaster interface {
	IsConnected() bool
	BroadcastTimer(ctx context.Context, payload events.TimerSyncPayload) error
}

// Status is the engine's lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
	StatusStopped Status = "stopped"
)

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	SessionID          string
	SenderID           string
	TickInterval       time.Duration
	BroadcastInterval  time.Duration
	Thresholds         Thresholds
	AutoSubmitOnExpiry bool
}

const (
	DefaultTickInterval      = time.Second
	DefaultBroadcastInterval = 5 * time.Second
)

// Snapshot is a point-in-time view of the countdown.
type Snapshot struct {
	Phase     models.Phase `json:"phase"`
	Remaining int          `json:"remaining_sec"`
	Total     int          `json:"total_sec"`
	Status    Status       `json:"status"`
	Level     WarningLevel `json:"warning_level"`
	Formatted string       `json:"formatted"`
	StartedAt time.Time    `json:"started_at"`
}

// Expired reports whether the countdown ran out.
func (s Snapshot) Expired() bool { return s.Status == StatusExpired }

// Engine is a single countdown. It is safe for concurrent use; observers are
// invoked outside the engine's lock.
type Engine struct {
	clock       Clock
	cfg         Config
	broadcaster Broadcaster

	mu        sync.Mutex
	gen       uint64
	phase     models.Phase
	remaining int
	total     int
	status    Status
	level     WarningLevel
	submitted bool
	startedAt time.Time
	cancel    context.CancelFunc

	onTick       observer.List[Snapshot]
	onWarning    observer.List[Snapshot]
	onExpire     observer.List[Snapshot]
	onAutoSubmit observer.List[Snapshot]
	onSync       observer.List[Snapshot]
}

// NewEngine creates an idle engine. broadcaster may be nil.
func NewEngine(clock Clock, cfg Config, broadcaster Broadcaster) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = DefaultBroadcastInterval
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds
	}
	return &Engine{
		clock:       clock,
		cfg:         cfg,
		broadcaster: broadcaster,
		status:      StatusIdle,
		level:       WarningNone,
	}
}

func (e *Engine) OnTick(fn func(Snapshot)) func()       { return e.onTick.Add(fn) }
func (e *Engine) OnWarning(fn func(Snapshot)) func()    { return e.onWarning.Add(fn) }
func (e *Engine) OnExpire(fn func(Snapshot)) func()     { return e.onExpire.Add(fn) }
func (e *Engine) OnAutoSubmit(fn func(Snapshot)) func() { return e.onAutoSubmit.Add(fn) }
func (e *Engine) OnSync(fn func(Snapshot)) func()       { return e.onSync.Add(fn) }

// Start resets the countdown to duration seconds for phase and begins
// ticking. Any previous run is cancelled first.
func (e *Engine) Start(duration int, phase models.Phase) {
	if duration < 0 {
		duration = 0
	}

	e.mu.Lock()
	e.stopLoopsLocked()
	e.phase = phase
	e.remaining = duration
	e.total = duration
	e.status = StatusRunning
	e.level = WarningNone
	e.submitted = false
	e.startedAt = e.clock.Now()
	e.startLoopsLocked()
	e.mu.Unlock()

	log.Debug().
		Str("session_id", e.cfg.SessionID).
		Str("phase", string(phase)).
		Int("duration_sec", duration).
		Msg("timer started")
}

// Pause halts ticking without losing the remaining time.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return
	}
	e.stopLoopsLocked()
	e.status = StatusPaused
}

// Resume continues a paused countdown.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusPaused {
		return
	}
	e.status = StatusRunning
	e.startLoopsLocked()
}

// Stop cancels the tick and broadcast loops and keeps the remaining time.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopsLocked()
	if e.status == StatusRunning || e.status == StatusPaused {
		e.status = StatusStopped
	}
}

// Reset stops the engine and clears every value including the phase.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopsLocked()
	e.phase = ""
	e.remaining = 0
	e.total = 0
	e.status = StatusIdle
	e.level = WarningNone
	e.submitted = false
	e.startedAt = time.Time{}
}

// SetSubmitted records whether the player already handed in, which
// suppresses auto-submit on expiry.
func (e *Engine) SetSubmitted(submitted bool) {
	e.mu.Lock()
	e.submitted = submitted
	e.mu.Unlock()
}

// Tick advances the countdown by one second. It is a no-op unless running.
func (e *Engine) Tick() {
	e.advance(0)
}

// advance ticks unless gen names a run that has since been replaced.
func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	if e.status != StatusRunning || (gen != 0 && gen != e.gen) {
		e.mu.Unlock()
		return
	}

	if e.remaining > 0 {
		e.remaining--
	}
	warn := e.updateLevelLocked()

	expired := false
	autoSubmit := false
	if e.remaining == 0 {
		expired = true
		autoSubmit = e.cfg.AutoSubmitOnExpiry && !e.submitted
		e.status = StatusExpired
		e.stopLoopsLocked()
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.onTick.Emit(snap)
	if warn {
		e.onWarning.Emit(snap)
	}
	if expired {
		log.Info().
			Str("session_id", e.cfg.SessionID).
			Str("phase", string(snap.Phase)).
			Msg("timer expired")
		e.onExpire.Emit(snap)
	}
	if autoSubmit {
		e.onAutoSubmit.Emit(snap)
	}
}

// Sync overwrites the countdown with an authoritative value.
func (e *Engine) Sync(remaining, total int) {
	if remaining < 0 {
		remaining = 0
	}
	if total < remaining {
		total = remaining
	}

	e.mu.Lock()
	e.remaining = remaining
	e.total = total
	warn := e.updateLevelLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.onSync.Emit(snap)
	if warn {
		e.onWarning.Emit(snap)
	}
}

// ApplySync applies a peer or server broadcast. Broadcasts from this engine's
// own sender, for another session, or for another phase are ignored.
func (e *Engine) ApplySync(p events.TimerSyncPayload) bool {
	e.mu.Lock()
	phase := e.phase
	e.mu.Unlock()

	if p.SenderID != "" && p.SenderID == e.cfg.SenderID {
		return false
	}
	if p.SessionID != "" && e.cfg.SessionID != "" && p.SessionID != e.cfg.SessionID {
		return false
	}
	if phase != "" && p.Phase != "" && p.Phase != phase {
		log.Debug().
			Str("session_id", e.cfg.SessionID).
			Str("local_phase", string(phase)).
			Str("sync_phase", string(p.Phase)).
			Msg("ignoring timer sync for other phase")
		return false
	}

	e.Sync(p.Remaining, p.Total)
	return true
}

// Broadcast publishes the current countdown once if running and connected.
// Failures are logged and otherwise ignored.
func (e *Engine) Broadcast(ctx context.Context) {
	if e.broadcaster == nil || !e.broadcaster.IsConnected() {
		return
	}

	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	payload := events.TimerSyncPayload{
		SessionID: e.cfg.SessionID,
		SenderID:  e.cfg.SenderID,
		Phase:     e.phase,
		Remaining: e.remaining,
		Total:     e.total,
		SentAt:    e.clock.Now(),
	}
	e.mu.Unlock()

	if err := e.broadcaster.BroadcastTimer(ctx, payload); err != nil {
		log.Error().
			Err(err).
			Str("session_id", e.cfg.SessionID).
			Msg("failed to broadcast timer")
	}
}

// Snapshot returns the current countdown.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:     e.phase,
		Remaining: e.remaining,
		Total:     e.total,
		Status:    e.status,
		Level:     e.level,
		Formatted: FormatTime(e.remaining),
		StartedAt: e.startedAt,
	}
}

// updateLevelLocked recomputes the warning band and reports whether a new,
// non-none band was entered.
func (e *Engine) updateLevelLocked() bool {
	level := e.cfg.Thresholds.LevelFor(e.remaining)
	changed := level != e.level
	e.level = level
	return changed && level != WarningNone
}

func (e *Engine) startLoopsLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.gen++

	// Tickers are created here so a fake clock sees them before Start returns.
	tick := e.clock.NewTicker(e.cfg.TickInterval)
	broadcast := e.clock.NewTicker(e.cfg.BroadcastInterval)

	go e.run(ctx, e.gen, tick)
	go e.broadcastLoop(ctx, broadcast)
}

func (e *Engine) stopLoopsLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) run(ctx context.Context, gen uint64, ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.advance(gen)
		}
	}
}

func (e *Engine) broadcastLoop(ctx context.Context, ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Broadcast(ctx)
		}
	}
}
