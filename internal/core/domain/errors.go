package domain

import (
	"errors"
	"fmt"
)

// Common domain errors.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAuthFailed indicates authentication against the source or the
	// search index was rejected. Always treated as fatal for a run.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidConfig indicates the loaded configuration is unusable.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermissionSyncDisabled indicates permission sync was requested
	// while enable_document_permission is false.
	ErrPermissionSyncDisabled = errors.New("document permission sync is disabled")
)

// FatalError marks a failure that must abort the whole sync run without
// advancing any checkpoint. Object- and batch-level failures are logged
// and absorbed instead.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a run-aborting error.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err must unwind past the orchestrator.
func IsFatal(err error) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidConfig)
}
