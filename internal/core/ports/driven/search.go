package driven

import (
	"context"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

// DocumentResult is the per-document outcome of an index batch call.
type DocumentResult struct {
	ID     string
	Errors []string
}

// OK reports whether the document was accepted by the index.
func (r DocumentResult) OK() bool {
	return len(r.Errors) == 0
}

// SearchIndex ingests normalised documents and manages document-level
// permission grants in the target search index.
type SearchIndex interface {
	// IndexDocuments submits one batch and returns per-document results.
	// A document-level error does not fail the batch.
	IndexDocuments(ctx context.Context, docs []domain.Document) ([]DocumentResult, error)

	// DeleteDocuments removes documents by id.
	DeleteDocuments(ctx context.Context, ids []string) error

	// AddPermissions replaces the grant list of one principal.
	AddPermissions(ctx context.Context, user string, permissions []string) error

	// ListPermissions returns all principals with their grants.
	ListPermissions(ctx context.Context) (map[string][]string, error)

	// RemovePermissions clears all grants of one principal.
	RemovePermissions(ctx context.Context, user string) error

	// CreateContentSource provisions a new content source and returns
	// its id. Used by the bootstrap command only.
	CreateContentSource(ctx context.Context, name string) (string, error)
}
