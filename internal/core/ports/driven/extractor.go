package driven

import "context"

// TextExtractor converts a binary file payload into plain text.
// Extraction is best-effort: a failure is scoped to the one file and
// must never abort the sync.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (string, error)
}
