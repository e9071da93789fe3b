package transport

import (
	"context"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
)

// SnapshotSource loads the authoritative view of a session.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error)
}

type snapshotOverride struct {
	Service
	src SnapshotSource
}

func (s snapshotOverride) FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error) {
	return s.src.FetchSnapshot(ctx, sessionID)
}

// WithSnapshotSource returns svc with snapshot reads served by src, e.g. a
// direct database read, while actions still go to svc.
func WithSnapshotSource(svc Service, src SnapshotSource) Service {
	if src == nil {
		return svc
	}
	return snapshotOverride{Service: svc, src: src}
}
