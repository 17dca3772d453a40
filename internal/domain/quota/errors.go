package quota

import (
	"fmt"
	"net/http"
)

// QuotaExceededError is returned by Consume when an increment pushes usage
// past the limit. The increment is still persisted (admission control is
// approximate, not exact), so the carried usage reflects the overshoot.
type QuotaExceededError struct {
	Usage QuotaUsage
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf(
		"quota exceeded for %s: used %d of %d, resets at %s",
		e.Usage.TypeKey, e.Usage.Used, e.Usage.Limit, e.Usage.ResetsAt.Format("2006-01-02T15:04:05Z07:00"),
	)
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError carrying the
// usage snapshot that triggered it
func NewQuotaExceededError(usage QuotaUsage) *QuotaExceededError {
	return &QuotaExceededError{Usage: usage}
}

// BackendUnavailableError indicates the counter backend could not be
// reached. Whether callers see it depends on the configured unavailability
// policy; under fail-open the tracker absorbs it and treats usage as zero.
type BackendUnavailableError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("quota backend unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying backend error
func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}
