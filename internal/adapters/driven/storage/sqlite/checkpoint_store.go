package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store        *Store
	defaultStart time.Time
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Window returns the sync window for a collection. A missing or
// unreadable checkpoint falls back to the configured default start so a
// damaged store never blocks a run.
func (s *checkpointStore) Window(ctx context.Context, collection string, now time.Time) (domain.Window, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT synced_at FROM checkpoints WHERE collection = ?
	`, collection)

	var syncedAt string
	if err := row.Scan(&syncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewWindow(s.defaultStart, now), nil
		}
		return domain.Window{}, fmt.Errorf("scanning checkpoint: %w", err)
	}

	at, err := time.Parse(time.RFC3339, syncedAt)
	if err != nil {
		logger.Warn("Checkpoint of %s holds an unreadable timestamp %q, falling back to the default window", collection, syncedAt)
		return domain.NewWindow(s.defaultStart, now), nil
	}
	return domain.NewWindow(at, now), nil
}

// Set upserts the checkpoint for a collection. Last writer wins.
func (s *checkpointStore) Set(ctx context.Context, collection string, at time.Time, mode domain.SyncMode) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (collection, synced_at, mode, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection) DO UPDATE SET
			synced_at = excluded.synced_at,
			mode = excluded.mode,
			updated_at = excluded.updated_at
	`, collection, at.UTC().Format(time.RFC3339), string(mode))

	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}
