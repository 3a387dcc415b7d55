package submission

import (
	"errors"
	"fmt"
)

var (
	// ErrClientTimeout is the abort cause when the client-side deadline passes.
	ErrClientTimeout = errors.New("analysis timed out")
	// ErrUserCancelled is the abort cause when the user cancels.
	ErrUserCancelled = errors.New("analysis cancelled by user")
	// ErrSubmissionInFlight is returned when a submission is already running.
	ErrSubmissionInFlight = errors.New("an analysis is already in flight")
)

// ValidationError is a local, pre-request input problem. Message is shown
// to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RequestRejectedError means the backend answered but did not produce a
// usable result.
type RequestRejectedError struct {
	Status int
	Detail string
	Err    error
}

func (e *RequestRejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analysis rejected with status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("analysis rejected with status %d", e.Status)
}

func (e *RequestRejectedError) Unwrap() error {
	return e.Err
}

// TransportError means the request never got a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("analysis backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
