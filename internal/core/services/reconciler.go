package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/core/ports/driving"
	"github.com/custodia-labs/spsync/internal/logger"
)

// deleteBatchSize caps the number of ids per index delete call.
const deleteBatchSize = 100

// DeletionReconciler compares the object inventory against the source
// and removes index entries whose objects no longer exist. Every id is
// probed at its own endpoint: a vanished parent makes its descendants
// candidates but is never evidence on its own. Index deletes run bottom
// up so that a crash mid-way never leaves an orphaned child behind a
// removed parent.
type DeletionReconciler struct {
	client    driven.SourceClient
	index     driven.SearchIndex
	inventory driven.InventoryStore
	settings  *domain.Settings
}

var _ driving.DeletionSyncer = (*DeletionReconciler)(nil)

// NewDeletionReconciler wires the reconciler to its adapters.
func NewDeletionReconciler(client driven.SourceClient, index driven.SearchIndex, inventory driven.InventoryStore, settings *domain.Settings) *DeletionReconciler {
	return &DeletionReconciler{client: client, index: index, inventory: inventory, settings: settings}
}

// Run reconciles every known collection and returns the ids removed
// from the index. Objects whose existence cannot be determined because
// a probe failed transiently stay in both the index and the inventory.
func (r *DeletionReconciler) Run(ctx context.Context) ([]string, error) {
	inv, err := r.inventory.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	var removed []string
	for _, collection := range inv.Names() {
		ids, err := r.reconcileCollection(ctx, inv.Collection(collection))
		if err != nil {
			if domain.IsFatal(err) {
				return removed, err
			}
			logger.Error("Deletion reconciliation of %s failed: %v", collection, err)
			continue
		}
		if len(ids) > 0 {
			logger.Info("Removed %d deleted objects of collection %s from the index", len(ids), collection)
		}
		removed = append(removed, ids...)
	}

	if err := r.inventory.Save(ctx, inv); err != nil {
		return removed, fmt.Errorf("save inventory: %w", err)
	}
	return removed, nil
}

// reconcileCollection probes one collection's inventory and deletes
// what is gone, children before parents.
func (r *DeletionReconciler) reconcileCollection(ctx context.Context, inv *domain.CollectionInventory) ([]string, error) {
	deadSites, err := r.probeSites(ctx, inv)
	if err != nil {
		return nil, err
	}
	deadLists, deadListKeys, err := r.probeLists(ctx, inv)
	if err != nil {
		return nil, err
	}
	deadItems, err := r.probeItems(ctx, domain.ObjectListItems, inv)
	if err != nil {
		return nil, err
	}
	deadDriveItems, err := r.probeItems(ctx, domain.ObjectDriveItems, inv)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, batch := range [][]string{deadItems, deadDriveItems, deadLists, deadSites} {
		if err := r.deleteFromIndex(ctx, batch); err != nil {
			return removed, err
		}
		removed = append(removed, batch...)
	}

	r.pruneInventory(inv, deadSites, deadListKeys, deadItems, deadDriveItems)
	return removed, nil
}

// probeSites checks every known site and returns the ids of vanished
// sites.
func (r *DeletionReconciler) probeSites(ctx context.Context, inv *domain.CollectionInventory) ([]string, error) {
	var dead []string

	for id, siteURL := range inv.SiteEntries() {
		alive, err := r.client.Probe(ctx, siteURL+"/_api/web", "")
		if err != nil {
			if domain.IsFatal(err) {
				return nil, err
			}
			logger.Warn("Probe of site %s failed, keeping it: %v", siteURL, err)
			continue
		}
		if !alive {
			dead = append(dead, id)
		}
	}
	return dead, nil
}

// listKey identifies a list within the inventory.
type listKey struct {
	site string
	list string
}

// probeLists checks every known list at its own endpoint, including
// lists whose site vanished: a list goes only when its own probe
// reports it gone.
func (r *DeletionReconciler) probeLists(ctx context.Context, inv *domain.CollectionInventory) ([]string, map[listKey]bool, error) {
	var dead []string
	deadKeys := make(map[listKey]bool)

	for site, lists := range inv.ListEntries() {
		for id := range lists {
			relURL := fmt.Sprintf("%s/_api/web/lists(guid'%s')", site, id)
			alive, err := r.client.Probe(ctx, relURL, "")
			if err != nil {
				if domain.IsFatal(err) {
					return nil, nil, err
				}
				logger.Warn("Probe of list %s failed, keeping it: %v", id, err)
				continue
			}
			if !alive {
				dead = append(dead, id)
				deadKeys[listKey{site, id}] = true
			}
		}
	}
	return dead, deadKeys, nil
}

// probeItems checks every item of type t via a filtered query against
// its list. A vanished list answers the query with a 404, which the
// probe reports as gone; the item is still never removed on its
// parent's word alone.
func (r *DeletionReconciler) probeItems(ctx context.Context, t domain.ObjectType, inv *domain.CollectionInventory) ([]string, error) {
	var dead []string

	for site, lists := range inv.ItemEntries(t) {
		for list, ids := range lists {
			for _, id := range ids {
				relURL := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items", site, list)
				query := fmt.Sprintf("?$filter=GUID eq '%s'", id)
				alive, err := r.client.Probe(ctx, relURL, query)
				if err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						dead = append(dead, id)
						continue
					}
					if domain.IsFatal(err) {
						return nil, err
					}
					logger.Warn("Probe of item %s failed, keeping it: %v", id, err)
					continue
				}
				if !alive {
					dead = append(dead, id)
				}
			}
		}
	}
	return dead, nil
}

// deleteFromIndex removes the ids from the index in capped batches.
func (r *DeletionReconciler) deleteFromIndex(ctx context.Context, ids []string) error {
	for _, batch := range splitIntoChunks(ids, deleteBatchSize) {
		if err := r.index.DeleteDocuments(ctx, batch); err != nil {
			return fmt.Errorf("delete %d documents: %w", len(batch), err)
		}
	}
	return nil
}

// pruneInventory drops exactly the objects removed from the index.
// Descendants of a dead parent that survived their own probe, or whose
// probe failed transiently, stay recorded for the next pass.
func (r *DeletionReconciler) pruneInventory(inv *domain.CollectionInventory, deadSites []string, deadLists map[listKey]bool, deadItems, deadDriveItems []string) {
	for _, id := range deadSites {
		inv.RemoveSite(id)
	}
	for key := range deadLists {
		inv.RemoveList(key.site, key.list)
	}
	byList := func(t domain.ObjectType, dead []string) {
		gone := make(map[string]bool, len(dead))
		for _, id := range dead {
			gone[id] = true
		}
		for site, lists := range inv.ItemEntries(t) {
			for list, ids := range lists {
				var remove []string
				for _, id := range ids {
					if gone[id] {
						remove = append(remove, id)
					}
				}
				inv.RemoveItems(t, site, list, remove)
			}
		}
	}
	byList(domain.ObjectListItems, deadItems)
	byList(domain.ObjectDriveItems, deadDriveItems)
	inv.Prune()
}
