package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrBodyTooLarge is returned when the decoded body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// FetchError reports a failed fetch of one URL.
//
// Design decision: The status code is kept as a field instead of being
// folded into the message so that RetryFetcher can tell permanent client
// errors from retryable server and transport errors.
type FetchError struct {
	// URL is the requested URL.
	URL string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
