package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/core/ports/driving"
	"github.com/custodia-labs/spsync/internal/logger"
)

// SyncOrchestrator runs full and incremental synchronisation across all
// configured site collections: it partitions each collection's window,
// fans the hierarchy walk out over fetch workers, streams document
// batches through the sync queue to the index writers and records the
// observed object ids in the inventory.
type SyncOrchestrator struct {
	client    driven.SourceClient
	index     driven.SearchIndex
	extractor driven.TextExtractor

	checkpoints driven.CheckpointStore
	inventory   driven.InventoryStore

	settings *domain.Settings
}

var _ driving.Syncer = (*SyncOrchestrator)(nil)

// NewSyncOrchestrator wires the orchestrator to its adapters.
func NewSyncOrchestrator(
	client driven.SourceClient,
	index driven.SearchIndex,
	extractor driven.TextExtractor,
	checkpoints driven.CheckpointStore,
	inventory driven.InventoryStore,
	settings *domain.Settings,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		client:      client,
		index:       index,
		extractor:   extractor,
		checkpoints: checkpoints,
		inventory:   inventory,
		settings:    settings,
	}
}

// Run executes one synchronisation pass in the given mode. Collections
// fail independently: an error in one pins its checkpoint and moves on
// to the next, and the aggregated errors are returned at the end. Only
// fatal errors, such as rejected credentials, abort the whole run.
func (o *SyncOrchestrator) Run(ctx context.Context, mode domain.SyncMode) error {
	runID := uuid.NewString()
	now := time.Now().UTC()
	logger.Info("Starting %s sync %s for %d site collections", mode, runID, len(o.settings.SharePoint.SiteCollections))

	inv, err := o.inventory.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load the object inventory, starting from an empty one: %v", err)
		inv = domain.NewInventory()
	}

	// A writer that dies on an index transport error cancels runCtx, so
	// producers stop fetching, no further checkpoint markers are
	// enqueued and nothing blocks on a queue no one is draining.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := NewSyncQueue(DefaultQueueCapacity)
	writers := o.settings.IndexThreadCount
	writer := NewIndexWriter(o.index, o.checkpoints, DefaultBatchSize)

	var wg sync.WaitGroup
	var writerMu sync.Mutex
	var writerErr error
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := writer.Drain(runCtx, queue); err != nil && !errors.Is(err, context.Canceled) {
				writerMu.Lock()
				if writerErr == nil {
					writerErr = err
				}
				writerMu.Unlock()
				cancel()
			}
		}()
	}

	var failed []string
	var fatal error
	for _, collection := range o.settings.SharePoint.SiteCollections {
		window, err := o.collectionWindow(runCtx, collection, mode, now)
		if err != nil {
			logger.Error("Failed to determine the sync window for %s: %v", collection, err)
			failed = append(failed, collection)
			continue
		}
		logger.Info("Synchronising collection %s over %s", collection, window)

		current := domain.NewCollectionInventory()
		if err := o.syncCollection(runCtx, collection, window, mode, queue, current); err != nil {
			if domain.IsFatal(err) || runCtx.Err() != nil {
				fatal = err
				break
			}
			logger.Error("Synchronisation of %s failed, its checkpoint stays pinned: %v", collection, err)
			failed = append(failed, collection)
			continue
		}
		if runCtx.Err() != nil {
			// A writer died while this collection was in flight; its
			// pending documents may be lost, so the checkpoint stays
			// pinned.
			fatal = runCtx.Err()
			break
		}

		if err := queue.PutCheckpoint(runCtx, collection, window.End, mode); err != nil {
			fatal = err
			break
		}
		inv.Collection(collection).Merge(current)
	}

	if err := queue.EndSignal(runCtx, writers); err != nil {
		logger.Debug("Sync aborted before the end-of-stream signal: %v", err)
	}
	wg.Wait()
	writerMu.Lock()
	werr := writerErr
	writerMu.Unlock()
	if werr != nil {
		logger.Error("Index writer failed: %v", werr)
		if fatal == nil || errors.Is(fatal, context.Canceled) {
			fatal = werr
		}
	}

	if err := o.inventory.Save(ctx, inv); err != nil {
		logger.Error("Failed to save the object inventory: %v", err)
	}
	logger.Info("Sync %s finished: %d documents indexed, %d rejected", runID, writer.Indexed(), writer.Failed())

	if fatal != nil {
		return fatal
	}
	if len(failed) > 0 {
		return fmt.Errorf("synchronisation failed for collections %v", failed)
	}
	return nil
}

// collectionWindow resolves the window for one collection. Full syncs
// run from the configured start time; incremental syncs resume from the
// collection's checkpoint.
func (o *SyncOrchestrator) collectionWindow(ctx context.Context, collection string, mode domain.SyncMode, now time.Time) (domain.Window, error) {
	if mode == domain.SyncModeFull {
		end := now
		if !o.settings.EndTime.IsZero() {
			end = o.settings.EndTime
		}
		return domain.NewWindow(o.settings.StartTime, end), nil
	}
	return o.checkpoints.Window(ctx, collection, now)
}

// syncCollection walks one collection's hierarchy for one window. The
// sites phase runs over window partitions in parallel; the later phases
// partition the discovered containers across the fetch workers.
func (o *SyncOrchestrator) syncCollection(ctx context.Context, collection string, window domain.Window, mode domain.SyncMode, queue *SyncQueue, current *domain.CollectionInventory) error {
	resolver := NewPermissionResolver(o.client)
	rootPath := "/sites/" + collection
	workers := o.settings.FetchThreadCount

	sites := map[string]time.Time{rootPath: window.End}
	var mu sync.Mutex

	subWindows := window.Split(workers)
	err := o.runParallel(ctx, len(subWindows), func(i int) error {
		sub := subWindows[i]
		fetcher := NewHierarchyFetcher(o.client, o.extractor, resolver, o.settings, sub, current)
		found, docs, err := fetcher.FetchSites(ctx, rootPath, sub)
		if err != nil {
			return err
		}
		if err := queue.PutDocuments(ctx, domain.ObjectSites, docs); err != nil {
			return err
		}
		mu.Lock()
		for site, modified := range found {
			if existing, ok := sites[site]; !ok || modified.After(existing) {
				sites[site] = modified
			}
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("sites phase: %w", err)
	}

	lists := make(map[string]ListMeta)
	libraries := make(map[string]ListMeta)
	siteBuckets := splitIntoBuckets(mapKeys(sites), workers)
	err = o.runParallel(ctx, len(siteBuckets), func(i int) error {
		subset := make(map[string]time.Time, len(siteBuckets[i]))
		for _, site := range siteBuckets[i] {
			subset[site] = sites[site]
		}
		fetcher := NewHierarchyFetcher(o.client, o.extractor, resolver, o.settings, window, current)
		foundLists, foundLibraries, docs, err := fetcher.FetchLists(ctx, subset)
		if err != nil {
			return err
		}
		if err := queue.PutDocuments(ctx, domain.ObjectLists, docs); err != nil {
			return err
		}
		mu.Lock()
		for id, meta := range foundLists {
			lists[id] = meta
		}
		for id, meta := range foundLibraries {
			libraries[id] = meta
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("lists phase: %w", err)
	}

	if o.settings.ObjectEnabled(domain.ObjectListItems) {
		if err := o.fetchItemPhase(ctx, domain.ObjectListItems, lists, window, resolver, queue, current); err != nil {
			return fmt.Errorf("list items phase: %w", err)
		}
	}
	if o.settings.ObjectEnabled(domain.ObjectDriveItems) {
		if err := o.fetchItemPhase(ctx, domain.ObjectDriveItems, libraries, window, resolver, queue, current); err != nil {
			return fmt.Errorf("drive items phase: %w", err)
		}
	}
	return nil
}

// fetchItemPhase partitions the containers across the fetch workers and
// fetches their items or drive items.
func (o *SyncOrchestrator) fetchItemPhase(ctx context.Context, t domain.ObjectType, containers map[string]ListMeta, window domain.Window, resolver *PermissionResolver, queue *SyncQueue, current *domain.CollectionInventory) error {
	ids := mapKeys(containers)
	buckets := splitIntoBuckets(ids, o.settings.FetchThreadCount)
	return o.runParallel(ctx, len(buckets), func(i int) error {
		subset := make(map[string]ListMeta, len(buckets[i]))
		for _, id := range buckets[i] {
			subset[id] = containers[id]
		}
		fetcher := NewHierarchyFetcher(o.client, o.extractor, resolver, o.settings, window, current)
		var docs []domain.Document
		var err error
		if t == domain.ObjectListItems {
			docs, err = fetcher.FetchItems(ctx, subset)
		} else {
			docs, err = fetcher.FetchDriveItems(ctx, subset)
		}
		if err != nil {
			return err
		}
		return queue.PutDocuments(ctx, t, docs)
	})
}

// runParallel runs fn for each index in its own goroutine and returns
// the first error.
func (o *SyncOrchestrator) runParallel(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := fn(i); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	var first error
	for err := range errs {
		if domain.IsFatal(err) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
