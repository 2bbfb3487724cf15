package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedContentType is returned for bodies that are not text.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ExtractError reports a body that could not be turned into text.
type ExtractError struct {
	// ContentType is the Content-Type of the body.
	ContentType string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.ContentType != "" {
		return fmt.Sprintf("extract (%s): %v", e.ContentType, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractError) Unwrap() error {
	return e.Err
}
