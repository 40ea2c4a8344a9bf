package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

// DefaultBatchSize is the number of documents sent per index call.
const DefaultBatchSize = 100

// IndexWriter drains the sync queue into the search index. Documents
// are accumulated and flushed in fixed-size batches; a checkpoint
// marker forces a flush of everything before it so the checkpoint never
// outruns its documents.
type IndexWriter struct {
	index       driven.SearchIndex
	checkpoints driven.CheckpointStore
	batchSize   int

	indexed atomic.Int64
	failed  atomic.Int64
}

// NewIndexWriter creates a writer over the index and checkpoint store.
// A batch size below 1 selects the default.
func NewIndexWriter(index driven.SearchIndex, checkpoints driven.CheckpointStore, batchSize int) *IndexWriter {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &IndexWriter{index: index, checkpoints: checkpoints, batchSize: batchSize}
}

// Indexed returns the number of documents accepted by the index so far.
func (w *IndexWriter) Indexed() int64 { return w.indexed.Load() }

// Failed returns the number of documents the index rejected so far.
func (w *IndexWriter) Failed() int64 { return w.failed.Load() }

// Drain consumes work items until an end-of-stream item arrives or the
// context is cancelled. Per-document rejections are logged and counted;
// transport-level index failures abort the writer.
func (w *IndexWriter) Drain(ctx context.Context, queue *SyncQueue) error {
	var pending []domain.Document

	for {
		item, err := queue.Get(ctx)
		if err != nil {
			return err
		}

		switch item.Kind {
		case domain.WorkItemDocuments:
			pending = append(pending, item.Documents...)
			for len(pending) >= w.batchSize {
				if err := w.flush(ctx, pending[:w.batchSize]); err != nil {
					return err
				}
				pending = pending[w.batchSize:]
			}

		case domain.WorkItemCheckpoint:
			if err := w.flush(ctx, pending); err != nil {
				return err
			}
			pending = nil
			if err := w.checkpoints.Set(ctx, item.Collection, item.Time, item.Mode); err != nil {
				logger.Error("Failed to record checkpoint for %s: %v", item.Collection, err)
			} else {
				logger.Info("Checkpoint for %s advanced to %s", item.Collection, item.Time.Format("2006-01-02T15:04:05Z"))
			}

		case domain.WorkItemEndOfStream:
			return w.flush(ctx, pending)
		}
	}
}

// flush indexes one batch of documents.
func (w *IndexWriter) flush(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	results, err := w.index.IndexDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("index %d documents: %w", len(docs), err)
	}
	for _, result := range results {
		if result.OK() {
			w.indexed.Add(1)
			continue
		}
		w.failed.Add(1)
		logger.Error("Document %s rejected by the index: %v", result.ID, result.Errors)
	}
	logger.Debug("Indexed batch of %d documents", len(docs))
	return nil
}
