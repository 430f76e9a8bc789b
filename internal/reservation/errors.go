package reservation

import (
	"errors"
	"fmt"
)

var (
	// ErrSeatUnavailable is shown to the rider when a seat cannot be taken
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrUnauthenticated means no credential was supplied
	ErrUnauthenticated = errors.New("login required")
	// ErrResyncRequired means the local view must be refreshed from the server first
	ErrResyncRequired = errors.New("seat view is stale, reload seats")

	ErrNotFound     = errors.New("run or seat not found")
	ErrSeatConflict = errors.New("seat already booked")
	ErrUnauthorized = errors.New("credential rejected")
	ErrBadRequest   = errors.New("request rejected")
	ErrRateLimited  = errors.New("too many requests")
	// ErrTransport covers network failures, timeouts and server errors. The
	// outcome of a claim that fails this way is unknown.
	ErrTransport = errors.New("transport failure")
)

// APIError carries the server's status and message alongside the sentinel it maps to
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Err, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
