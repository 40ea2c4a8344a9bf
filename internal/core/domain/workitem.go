package domain

import "time"

// SyncMode distinguishes full from incremental passes.
type SyncMode string

// Available sync modes.
const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// String returns the string representation.
func (m SyncMode) String() string {
	return string(m)
}

// WorkItemKind discriminates the payload carried by a WorkItem.
type WorkItemKind int

// Work item kinds.
const (
	// WorkItemDocuments carries a batch of normalised documents.
	WorkItemDocuments WorkItemKind = iota

	// WorkItemCheckpoint instructs the consumer to flush pending
	// documents and persist the checkpoint for a collection.
	WorkItemCheckpoint

	// WorkItemEndOfStream terminates one consumer.
	WorkItemEndOfStream
)

// WorkItem is the sync queue payload connecting fetchers to the writer.
type WorkItem struct {
	Kind WorkItemKind

	// Documents payload.
	ObjectType ObjectType
	Documents  []Document

	// Checkpoint payload.
	Collection string
	Time       time.Time
	Mode       SyncMode
}

// DocumentsItem builds a document-batch work item.
func DocumentsItem(t ObjectType, docs []Document) WorkItem {
	return WorkItem{Kind: WorkItemDocuments, ObjectType: t, Documents: docs}
}

// CheckpointItem builds a checkpoint marker for a collection.
func CheckpointItem(collection string, at time.Time, mode SyncMode) WorkItem {
	return WorkItem{Kind: WorkItemCheckpoint, Collection: collection, Time: at, Mode: mode}
}

// EndOfStreamItem builds a consumer termination signal.
func EndOfStreamItem() WorkItem {
	return WorkItem{Kind: WorkItemEndOfStream}
}
