package fetch

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload   = errors.New("empty payload")
	ErrNoTabularEntry = errors.New("archive has no tabular entry")
	ErrTableNotFound  = errors.New("no table on page")
	ErrMalformed      = errors.New("malformed delimited content")
)

// TransportError means the unit could not be retrieved at all: the request
// failed or the server answered with a non-success status.
type TransportError struct {
	Unit   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Unit, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Unit, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PayloadError means the unit was retrieved but its content could not be
// turned into rows.
type PayloadError struct {
	Unit string
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("payload %s: %v", e.Unit, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}
