package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
)

// APIError is returned by the PMS client once retries are exhausted.
// Status is 0 when the last attempt failed at the transport level.
type APIError struct {
	Status int
	URL    string
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("pms: %s: %v", e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("pms: %s: status %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("pms: %s: status %d", e.URL, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// TransportError is a connection or timeout failure of a single attempt.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.URL, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// PartialFetchError describes one failed item of a batch fetch. It is logged, never returned.
type PartialFetchError struct {
	Kind EntityKind
	ID   int64
	Err  error
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("partial fetch %s %d: %v", e.Kind, e.ID, e.Err)
}
func (e *PartialFetchError) Unwrap() error { return e.Err }

type BookingSyncError struct {
	BookingID int64
	Stage     string
	Err       error
}

func (e *BookingSyncError) Error() string {
	return fmt.Sprintf("sync booking %d: %s: %v", e.BookingID, e.Stage, e.Err)
}
func (e *BookingSyncError) Unwrap() error { return e.Err }

// EnumerationError is fatal to a whole sync run.
type EnumerationError struct{ Err error }

func (e *EnumerationError) Error() string { return fmt.Sprintf("list booking ids: %v", e.Err) }
func (e *EnumerationError) Unwrap() error { return e.Err }
