package source

import (
	"errors"
	"fmt"
)

var errMissing = errors.New("missing field")

// FetchError reports that the readings query could not be completed: a
// transport failure, an unreadable body, or a non-2xx response.
type FetchError struct {
	// StatusCode is the HTTP status of the response, or 0 if the request
	// failed before one was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a row the service returned that fails validation.
// The whole fetch is rejected; no partial result is kept.
type ParseError struct {
	// Row is the zero-based index of the offending row.
	Row int

	// Field is the column that failed validation.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %v", e.Row, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
