package driven

import (
	"context"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

// FetchHint tells the source client which pagination and error handling
// behaviour a call needs. Sites and lists page with skip/top, items and
// drive items follow the server's next link, the remaining hints issue a
// single request.
type FetchHint string

// Fetch hints.
const (
	HintSites       FetchHint = "sites"
	HintLists       FetchHint = "lists"
	HintListItems   FetchHint = "list_items"
	HintDriveItems  FetchHint = "drive_items"
	HintAttachment  FetchHint = "attachment"
	HintPermissions FetchHint = "permissions"
)

// SourceClient issues OData queries against the SharePoint farm. Retry
// with exponential backoff on transient failure is the client's
// responsibility; exhausted retries surface as errors. A 404 response
// surfaces as domain.ErrNotFound, a 401/403 as domain.ErrAuthFailed.
type SourceClient interface {
	// Fetch returns all result rows for relURL, following pagination
	// according to hint.
	Fetch(ctx context.Context, relURL, query string, hint FetchHint) ([]map[string]any, error)

	// FetchBinary downloads a file payload, e.g. an attachment body.
	FetchBinary(ctx context.Context, relURL string) ([]byte, error)

	// Probe checks object existence for deletion reconciliation.
	// A 404 or an empty filtered result set reports false without error.
	Probe(ctx context.Context, relURL, query string) (bool, error)

	// Query builds the OData filter bounding a fetch to the window.
	Query(window domain.Window, t domain.ObjectType) string
}
