package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

func TestSyncQueue_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	q := NewSyncQueue(10)
	require.NoError(t, q.PutDocuments(ctx, domain.ObjectSites, []domain.Document{{ID: "a"}}))
	require.NoError(t, q.PutDocuments(ctx, domain.ObjectLists, []domain.Document{{ID: "b"}}))
	require.NoError(t, q.PutCheckpoint(ctx, "enterprise", time.Now(), domain.SyncModeFull))

	first, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkItemDocuments, first.Kind)
	assert.Equal(t, "a", first.Documents[0].ID)

	second, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second.Documents[0].ID)

	third, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkItemCheckpoint, third.Kind)
	assert.Equal(t, "enterprise", third.Collection)
}

func TestSyncQueue_DropsEmptyDocumentBatches(t *testing.T) {
	q := NewSyncQueue(10)
	require.NoError(t, q.PutDocuments(context.Background(), domain.ObjectSites, nil))
	assert.Equal(t, 0, q.Len())
}

func TestSyncQueue_EndSignalPerConsumer(t *testing.T) {
	ctx := context.Background()
	q := NewSyncQueue(10)
	require.NoError(t, q.EndSignal(ctx, 3))
	require.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		item, err := q.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.WorkItemEndOfStream, item.Kind)
	}
}

func TestSyncQueue_GetHonoursCancellation(t *testing.T) {
	q := NewSyncQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyncQueue_PutHonoursCancellationWhenFull(t *testing.T) {
	q := NewSyncQueue(1)
	require.NoError(t, q.Put(context.Background(), domain.EndOfStreamItem()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The queue is full and no consumer is draining it: a producer
	// must still be able to give up.
	err := q.Put(ctx, domain.EndOfStreamItem())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSyncQueue_InvalidCapacityUsesDefault(t *testing.T) {
	q := NewSyncQueue(0)
	assert.Equal(t, DefaultQueueCapacity, cap(q.ch))
}
