package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

// CheckpointStore persists the last successful sync time per collection.
// Implementations must tolerate a missing or corrupt store by falling
// back to configured defaults, never failing the run.
type CheckpointStore interface {
	// Window returns the sync window for a collection: the configured
	// default window when no checkpoint exists, otherwise
	// [recorded time, now).
	Window(ctx context.Context, collection string, now time.Time) (domain.Window, error)

	// Set upserts the checkpoint for a collection. Last writer wins.
	Set(ctx context.Context, collection string, at time.Time, mode domain.SyncMode) error
}

// InventoryStore persists the local object-id inventory between runs.
type InventoryStore interface {
	// Load returns the stored inventory, or an empty one when the store
	// is absent or unreadable.
	Load(ctx context.Context) (*domain.Inventory, error)

	// Save replaces the stored inventory.
	Save(ctx context.Context, inv *domain.Inventory) error
}
