// Package syncmgr tracks optimistic updates that are waiting for the server
// and reconciles local session state against server snapshots.
package syncmgr

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
)

var (
	ErrUnknownKind   = errors.New("unknown update kind")
	ErrFieldNotOwned = errors.New("delta touches a field the update kind does not own")
)

// DefaultOutOfSyncAfter is how long without a successful sync before the
// client considers itself out of sync.
const DefaultOutOfSyncAfter = 30 * time.Second

// PendingUpdate is an optimistic mutation awaiting server confirmation.
type PendingUpdate struct {
	ID              string           `json:"id"`
	Kind            state.UpdateKind `json:"kind"`
	LocalDelta      state.Delta      `json:"local_delta"`
	RollbackDelta   state.Delta      `json:"rollback_delta"`
	Rows            []state.RowRef   `json:"rows,omitempty"`
	ServerConfirmed bool             `json:"server_confirmed"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Status summarises the sync health of the client.
type Status struct {
	PendingUpdates int       `json:"pending_updates"`
	LastSync       time.Time `json:"last_sync"`
	SyncInProgress bool      `json:"sync_in_progress"`
	IsOutOfSync    bool      `json:"is_out_of_sync"`
}

// Config tunes a Manager.
type Config struct {
	OutOfSyncAfter time.Duration
}

// Manager owns the pending updates of one session. It never touches session
// state itself; callers apply and undo the deltas it hands back.
type Manager struct {
	clock clockwork.Clock
	cfg   Config

	mu         sync.Mutex
	order      []string
	pending    map[string]*PendingUpdate
	unseen     map[string]unseenRow
	lastSync   time.Time
	inProgress bool
}

// NewManager creates a manager whose last sync is the construction time.
func NewManager(clock clockwork.Clock, cfg Config) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.OutOfSyncAfter <= 0 {
		cfg.OutOfSyncAfter = DefaultOutOfSyncAfter
	}
	return &Manager{
		clock:    clock,
		cfg:      cfg,
		pending:  make(map[string]*PendingUpdate),
		unseen:   make(map[string]unseenRow),
		lastSync: clock.Now(),
	}
}

// unseenRow is a row added by an optimistic update that no server snapshot
// has shown yet.
type unseenRow struct {
	state.RowRef
	updateID string
}

// ApplyOptimisticUpdate records an unconfirmed update and returns its id.
// local may only mention fields declared for kind in state.KindFields.
// Collection rows in local that rollback does not hold are tracked as the
// update's own rows until a server snapshot holds them or the update is
// rolled back.
func (m *Manager) ApplyOptimisticUpdate(kind state.UpdateKind, local, rollback state.Delta) (string, error) {
	if _, ok := state.KindFields[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for field := range local {
		if !kind.Owns(field) {
			return "", fmt.Errorf("%w: %s cannot write %s", ErrFieldNotOwned, kind, field)
		}
	}

	update := &PendingUpdate{
		ID:            uuid.NewString(),
		Kind:          kind,
		LocalDelta:    maps.Clone(local),
		RollbackDelta: maps.Clone(rollback),
		Rows:          state.AddedRows(rollback, local),
		CreatedAt:     m.clock.Now(),
	}

	m.mu.Lock()
	m.pending[update.ID] = update
	m.order = append(m.order, update.ID)
	for _, ref := range update.Rows {
		m.unseen[ref.ID] = unseenRow{RowRef: ref, updateID: update.ID}
	}
	m.mu.Unlock()

	log.Debug().
		Str("update_id", update.ID).
		Str("kind", string(kind)).
		Msg("optimistic update applied")
	return update.ID, nil
}

// ConfirmOptimisticUpdate marks the update confirmed. It reports false for an
// unknown id; confirming twice reports true both times.
func (m *Manager) ConfirmOptimisticUpdate(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	update, ok := m.pending[id]
	if !ok {
		return false
	}
	update.ServerConfirmed = true
	return true
}

// RollbackOptimisticUpdate removes the update and returns its rollback delta.
// ok is false for an unknown id.
func (m *Manager) RollbackOptimisticUpdate(id string) (rollback state.Delta, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	update, ok := m.pending[id]
	if !ok {
		return nil, false
	}
	m.removeLocked(id)
	for rowID, row := range m.unseen {
		if row.updateID == id {
			delete(m.unseen, rowID)
		}
	}

	log.Debug().
		Str("update_id", id).
		Str("kind", string(update.Kind)).
		Msg("optimistic update rolled back")
	return update.RollbackDelta, true
}

// ClearConfirmedUpdates drops every confirmed update and returns how many
// were removed.
func (m *Manager) ClearConfirmedUpdates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearConfirmedLocked()
}

// PendingUpdates returns every tracked update in the order it was applied.
func (m *Manager) PendingUpdates() []PendingUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PendingUpdate, 0, len(m.order))
	for _, id := range m.order {
		u := *m.pending[id]
		u.LocalDelta = maps.Clone(u.LocalDelta)
		u.RollbackDelta = maps.Clone(u.RollbackDelta)
		u.Rows = slices.Clone(u.Rows)
		out = append(out, u)
	}
	return out
}

// UnseenRows returns the optimistic rows no server snapshot has held yet.
// They outlive the sweep of confirmed updates.
func (m *Manager) UnseenRows() []state.RowRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]state.RowRef, 0, len(m.unseen))
	for _, row := range m.unseen {
		out = append(out, row.RowRef)
	}
	return out
}

// PendingFields returns the fields mentioned by any unconfirmed update.
func (m *Manager) PendingFields() map[state.Field]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingFieldsLocked()
}

// HandleReconnection runs refresh unless a reconnection is already in
// flight, then sweeps confirmed updates and stamps the sync time. A refresh
// error is logged and leaves the last sync time untouched.
func (m *Manager) HandleReconnection(ctx context.Context, refresh func(context.Context) error) {
	m.mu.Lock()
	if m.inProgress {
		m.mu.Unlock()
		log.Debug().Msg("reconnection already in progress")
		return
	}
	m.inProgress = true
	m.mu.Unlock()

	err := refresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = false

	if err != nil {
		log.Error().Err(err).Msg("reconnection refresh failed")
		return
	}
	removed := m.clearConfirmedLocked()
	m.lastSync = m.clock.Now()

	log.Info().
		Int("cleared_updates", removed).
		Int("pending_updates", len(m.pending)).
		Msg("reconnection sync complete")
}

// MarkSynced stamps a successful sync outside of reconnection handling.
func (m *Manager) MarkSynced() {
	m.mu.Lock()
	m.lastSync = m.clock.Now()
	m.mu.Unlock()
}

// SyncStatus reports pending work and staleness.
func (m *Manager) SyncStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	unconfirmed := 0
	for _, u := range m.pending {
		if !u.ServerConfirmed {
			unconfirmed++
		}
	}
	stale := m.clock.Since(m.lastSync) > m.cfg.OutOfSyncAfter

	return Status{
		PendingUpdates: unconfirmed,
		LastSync:       m.lastSync,
		SyncInProgress: m.inProgress,
		IsOutOfSync:    unconfirmed > 0 || stale,
	}
}

func (m *Manager) pendingFieldsLocked() map[state.Field]bool {
	fields := make(map[state.Field]bool)
	for _, u := range m.pending {
		if u.ServerConfirmed {
			continue
		}
		for f := range u.LocalDelta {
			fields[f] = true
		}
	}
	return fields
}

func (m *Manager) clearConfirmedLocked() int {
	removed := 0
	for _, id := range append([]string(nil), m.order...) {
		if m.pending[id].ServerConfirmed {
			m.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (m *Manager) removeLocked(id string) {
	delete(m.pending, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
