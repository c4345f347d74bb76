package repository

import (
	"context"

	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
)

// SnapshotRepository exposes persistence operations for one tenant's graph
// snapshot. The core treats storage as a black box: load at worker startup,
// save after each applied mutation.
type SnapshotRepository interface {
	// Load returns the stored snapshot, or nil when the tenant database is
	// empty (a brand-new tenant).
	Load(ctx context.Context) (*graph.Snapshot, error)

	// Save replaces the stored snapshot with the given one.
	Save(ctx context.Context, snap *graph.Snapshot) error
}
