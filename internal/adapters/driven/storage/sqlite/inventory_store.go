package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

// inventoryStore implements driven.InventoryStore. Each collection's
// object ids are stored as one JSON blob per row.
type inventoryStore struct {
	store *Store
}

var _ driven.InventoryStore = (*inventoryStore)(nil)

// Load returns the stored inventory. Rows that fail to decode are
// skipped so one damaged blob does not discard the rest.
func (s *inventoryStore) Load(ctx context.Context) (*domain.Inventory, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT collection, objects FROM inventories`)
	if err != nil {
		return nil, fmt.Errorf("querying inventories: %w", err)
	}
	defer rows.Close()

	inv := domain.NewInventory()
	for rows.Next() {
		var collection, objects string
		if err := rows.Scan(&collection, &objects); err != nil {
			return nil, fmt.Errorf("scanning inventory: %w", err)
		}
		var ci domain.CollectionInventory
		if err := json.Unmarshal([]byte(objects), &ci); err != nil {
			logger.Warn("Inventory of %s is unreadable, skipping it: %v", collection, err)
			continue
		}
		inv.Collection(collection).Merge(&ci)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventories: %w", err)
	}
	return inv, nil
}

// Save replaces the stored inventory.
func (s *inventoryStore) Save(ctx context.Context, inv *domain.Inventory) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventories`); err != nil {
		return fmt.Errorf("clearing inventories: %w", err)
	}

	for _, collection := range inv.Names() {
		objects, err := json.Marshal(inv.Collection(collection))
		if err != nil {
			return fmt.Errorf("marshalling inventory of %s: %w", collection, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventories (collection, objects, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
		`, collection, string(objects))
		if err != nil {
			return fmt.Errorf("saving inventory of %s: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
