package services

import (
	"context"
	"time"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

// DefaultQueueCapacity bounds the number of in-flight work items.
// Producers block when the queue is full; a process crash loses
// in-flight items, which is acceptable because the next run re-derives
// them from the not-yet-advanced checkpoint.
const DefaultQueueCapacity = 1024

// SyncQueue is the bounded, ordered channel of work items connecting
// the hierarchy fetchers to the index writers. Checkpoint markers are
// ordinary items interleaved in the same stream.
type SyncQueue struct {
	ch chan domain.WorkItem
}

// NewSyncQueue creates a queue with the given capacity. A capacity
// below 1 selects the default.
func NewSyncQueue(capacity int) *SyncQueue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &SyncQueue{ch: make(chan domain.WorkItem, capacity)}
}

// Put enqueues one work item, blocking while the queue is full or until
// the context is cancelled. Producers must not outlive the consumers,
// so cancellation is the only way out of a full queue.
func (q *SyncQueue) Put(ctx context.Context, item domain.WorkItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- item:
		return nil
	}
}

// Get dequeues the next work item, blocking until one is available or
// the context is cancelled.
func (q *SyncQueue) Get(ctx context.Context) (domain.WorkItem, error) {
	select {
	case <-ctx.Done():
		return domain.WorkItem{}, ctx.Err()
	case item := <-q.ch:
		return item, nil
	}
}

// PutDocuments enqueues a document batch. Empty batches are dropped.
func (q *SyncQueue) PutDocuments(ctx context.Context, t domain.ObjectType, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return q.Put(ctx, domain.DocumentsItem(t, docs))
}

// PutCheckpoint enqueues the checkpoint marker for a collection. It
// must be called only after every document batch of that collection
// has been enqueued.
func (q *SyncQueue) PutCheckpoint(ctx context.Context, collection string, at time.Time, mode domain.SyncMode) error {
	return q.Put(ctx, domain.CheckpointItem(collection, at, mode))
}

// EndSignal enqueues one end-of-stream item per consumer so that all
// consumers terminate once producers are done.
func (q *SyncQueue) EndSignal(ctx context.Context, consumers int) error {
	for i := 0; i < consumers; i++ {
		if err := q.Put(ctx, domain.EndOfStreamItem()); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of queued items. For tests and logging only.
func (q *SyncQueue) Len() int {
	return len(q.ch)
}
