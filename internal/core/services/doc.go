// Package services implements the synchronisation engine: the sync
// orchestrator, the hierarchy fetcher, the bounded sync queue, the
// batching index writer, the deletion reconciler and permission
// resolution.
package services
