package ports

import (
	"context"

	"menusync/internal/types"
)

// SnapshotStore keeps the last successful catalog snapshot outside the process so a
// restart can warm its cache.
type SnapshotStore interface {
	// LoadSnapshot MUST return (nil, nil) when no snapshot exists.
	LoadSnapshot(ctx context.Context) (*types.Snapshot, error)

	SaveSnapshot(ctx context.Context, snap types.Snapshot) error
}
