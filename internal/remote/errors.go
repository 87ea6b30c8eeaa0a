package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork wraps transport-level failures: DNS, dial, timeout, or an
	// open circuit breaker. These are the retryable category.
	ErrNetwork = errors.New("network failure")

	// ErrDecode wraps failures to decode a response body that arrived with
	// a success status.
	ErrDecode = errors.New("response decode failed")
)

// StatusError reports a non-success HTTP status from the remote API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status indicates a transient server-side
// condition. Client errors (4xx) are never retried.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == 429
}

// IsNotFound reports whether err carries a 404 from the remote, meaning
// the target record does not exist upstream.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}

// CallError identifies which entity operation failed. The engine surfaces
// it for entity-level sync aborts; errors.Is/As reach the cause.
type CallError struct {
	Entity string
	Op     string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
