package driving

import (
	"context"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

// Syncer runs one full or incremental sync pass over the configured
// site collections.
type Syncer interface {
	Run(ctx context.Context, mode domain.SyncMode) error
}

// DeletionSyncer diffs the stored inventory against live existence
// probes and purges stale entries from index and inventory. It returns
// the removed document ids.
type DeletionSyncer interface {
	Run(ctx context.Context) ([]string, error)
}

// PermissionSyncer mirrors SharePoint user-to-group assignments into
// the search index permission API.
type PermissionSyncer interface {
	Run(ctx context.Context) error
}
