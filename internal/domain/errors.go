package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidWallet  = errors.New("invalid wallet address")
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCorruptLabels marks a stored label document that cannot be decoded.
	ErrCorruptLabels = errors.New("corrupt label document")
)

// FetchError is returned when a read against the venue (data API or Gamma
// API) fails. StatusCode is 0 when no HTTP response was received.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusCode extracts the upstream HTTP status carried by err, or 0 when err
// does not wrap a FetchError with a status.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
