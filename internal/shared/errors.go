package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown document, field, entry, or report id.
	ErrNotFound = errors.New("not found")
	// ErrDocumentLocked indicates a mutation attempt on a POSTED document.
	ErrDocumentLocked = errors.New("document is posted and locked")
	// ErrInvalidValue indicates a corrected value that fails the field's expected shape.
	ErrInvalidValue = errors.New("value does not match field shape")
	// ErrExternalService indicates the inference service stayed unavailable after retries.
	ErrExternalService = errors.New("external service unavailable")
	// ErrClassificationFailed indicates a service error or sub-floor confidence.
	ErrClassificationFailed = errors.New("classification failed")
	// ErrInvalidTransition indicates a document status change outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ConflictError reports a stale-version write on a field record. The caller is
// expected to re-fetch at CurrentVersion and retry.
type ConflictError struct {
	Entity          string
	ExpectedVersion int64
	CurrentVersion  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s version conflict: expected %d, current %d", e.Entity, e.ExpectedVersion, e.CurrentVersion)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
