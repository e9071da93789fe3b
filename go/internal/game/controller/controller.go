// Package controller owns the canonical state of one session on the client.
// Every change, whether it comes from a player action, the server, or the
// countdown, goes through the same commit path.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/observer"
	"github.com/mcdev12/doodleduel/go/internal/game/players"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/syncmgr"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
	"github.com/mcdev12/doodleduel/go/internal/game/transport"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// DefaultSweepInterval is how often confirmed updates are cleared.
const DefaultSweepInterval = 10 * time.Second

// Config configures a Controller.
type Config struct {
	SessionID   string
	UserID      string
	DisplayName string

	Strategy       syncmgr.Strategy
	AutoAdvance    bool
	SweepInterval  time.Duration
	OutOfSyncAfter time.Duration
	Timer          timer.Config
}

// AutoSubmitFunc produces the drawing handed in when the drawing timer runs
// out before the player submitted.
type AutoSubmitFunc func(ctx context.Context) (transport.Drawing, error)

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithBroadcaster publishes the local countdown to peers.
func WithBroadcaster(b timer.Broadcaster) Option {
	return func(c *Controller) { c.broadcaster = b }
}

// WithAutoSubmit enables submitting a drawing when the timer expires.
func WithAutoSubmit(fn AutoSubmitFunc) Option {
	return func(c *Controller) { c.autoSubmit = fn }
}

// Controller is the composition root for one session. Construct it with New
// and release it with Close.
type Controller struct {
	cfg         Config
	clock       clockwork.Clock
	svc         transport.Service
	sync        *syncmgr.Manager
	timer       *timer.Engine
	metrics     MetricsCollector
	broadcaster timer.Broadcaster
	autoSubmit  AutoSubmitFunc

	// ctx lives until Close and bounds work the controller starts on its own.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     state.SessionState
	server    state.Snapshot
	armedKey  string
	requested map[models.Phase]bool
	closed    bool

	listeners observer.List[state.SessionState]
}

// New wires a controller for cfg.SessionID as cfg.UserID.
func New(cfg Config, svc transport.Service, opts ...Option) *Controller {
	if cfg.Strategy == "" {
		cfg.Strategy = syncmgr.StrategyMerge
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	cfg.Timer.SessionID = cfg.SessionID
	if cfg.Timer.SenderID == "" {
		cfg.Timer.SenderID = cfg.UserID
	}

	c := &Controller{
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		svc:       svc,
		metrics:   NoOpMetricsCollector{},
		state:     state.New(cfg.UserID),
		requested: make(map[models.Phase]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.sync = syncmgr.NewManager(c.clock, syncmgr.Config{OutOfSyncAfter: cfg.OutOfSyncAfter})
	c.timer = timer.NewEngine(c.clock, cfg.Timer, c.broadcaster)

	c.timer.OnTick(c.handleTick)
	c.timer.OnSync(c.mirrorTimer)
	c.timer.OnExpire(c.handleExpire)
	c.timer.OnWarning(func(s timer.Snapshot) {
		log.Info().
			Str("session_id", cfg.SessionID).
			Str("level", string(s.Level)).
			Int("remaining_sec", s.Remaining).
			Msg("timer warning")
	})
	c.timer.OnAutoSubmit(c.handleAutoSubmit)

	return c
}

// Start loads the session and begins the periodic sweep of confirmed
// updates.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	ticker := c.clock.NewTicker(c.cfg.SweepInterval)
	c.wg.Add(1)
	go c.sweep(ticker)

	log.Info().
		Str("session_id", c.cfg.SessionID).
		Str("user_id", c.cfg.UserID).
		Str("strategy", string(c.cfg.Strategy)).
		Msg("session controller started")
	return nil
}

// Close stops the timer and background work. It is safe to call twice.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.timer.Reset()
	c.wg.Wait()
	log.Info().Str("session_id", c.cfg.SessionID).Msg("session controller closed")
}

// State returns a copy of the canonical state.
func (c *Controller) State() state.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Players returns derived player views over the current state.
func (c *Controller) Players() *players.Manager {
	return players.NewManager(c.cfg.UserID, c.State())
}

// SyncStatus reports pending updates and staleness.
func (c *Controller) SyncStatus() syncmgr.Status {
	return c.sync.SyncStatus()
}

// PendingUpdates lists the optimistic updates still tracked.
func (c *Controller) PendingUpdates() []syncmgr.PendingUpdate {
	return c.sync.PendingUpdates()
}

// Timer returns the current countdown.
func (c *Controller) Timer() timer.Snapshot {
	return c.timer.Snapshot()
}

// Subscribe registers fn to receive every committed state.
func (c *Controller) Subscribe(fn func(state.SessionState)) (unsubscribe func()) {
	return c.listeners.Add(fn)
}

// Refresh pulls a full snapshot and reconciles it into the local state.
func (c *Controller) Refresh(ctx context.Context) error {
	c.dispatch(state.LoadingSet{Loading: true})
	defer c.dispatch(state.LoadingSet{Loading: false})

	snap, err := c.svc.FetchSnapshot(ctx, c.cfg.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", c.cfg.SessionID).Msg("failed to refresh session")
		return fmt.Errorf("failed to refresh session %s: %w", c.cfg.SessionID, err)
	}

	c.reconcile(func(server *state.Snapshot) { *server = snap.Clone() })
	return nil
}

// HandleReconnect refreshes after a dropped connection. Failures are logged
// and show up through SyncStatus.
func (c *Controller) HandleReconnect(ctx context.Context) {
	c.sync.HandleReconnection(ctx, c.Refresh)
}

// reconcile updates the server mirror with fn and folds it into the local
// state as one atomic replacement.
func (c *Controller) reconcile(fn func(server *state.Snapshot)) {
	c.commit(func(s state.SessionState) (state.SessionState, bool) {
		fn(&c.server)
		merged := c.sync.ReconcileState(s, c.server, c.cfg.Strategy)
		return state.Reduce(s, state.Replaced{State: merged}), true
	})
	c.sync.MarkSynced()
	c.metrics.RecordReconcile(c.cfg.Strategy)
}

func (c *Controller) dispatch(a state.Action) {
	c.commit(func(s state.SessionState) (state.SessionState, bool) {
		return state.Reduce(s, a), true
	})
}

// commit is the single write path for the canonical state. fn runs under the
// controller lock and reports whether it produced a new state.
// Nothing is committed once the controller is closed.
func (c *Controller) commit(fn func(state.SessionState) (state.SessionState, bool)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	next, changed := fn(c.state)
	if !changed {
		c.mu.Unlock()
		return
	}

	key := armKey(next)
	rearm := key != c.armedKey
	var plan timerPlan
	if rearm {
		c.armedKey = key
		plan = c.planTimer(next)
		next.TimeRemaining = plan.remaining
		next.TimerExpired = false
	}
	c.state = next
	c.mu.Unlock()

	if rearm {
		c.applyTimer(plan)
	}
	c.timer.SetSubmitted(next.HasSubmitted)
	c.listeners.Emit(next.Clone())
	c.maybeAdvance(next)
}

func (c *Controller) sweep(ticker clockwork.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.Chan():
			if n := c.sync.ClearConfirmedUpdates(); n > 0 {
				log.Debug().
					Str("session_id", c.cfg.SessionID).
					Int("cleared", n).
					Msg("swept confirmed updates")
			}
		}
	}
}
