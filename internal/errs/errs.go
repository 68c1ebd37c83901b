// Package errs holds the error taxonomy shared by the publisher and the
// gateway, plus a wrapper that carries a short user-facing reason.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrNotFound is a missing manifest file or a missing agent definition.
	ErrNotFound = errors.New("not found")
	// ErrParse is a manifest that cannot be decoded or fails its schema.
	ErrParse = errors.New("malformed")
	// ErrPublish is a non-success terminal status from the store API.
	ErrPublish = errors.New("publish failed")
	// ErrInitialization is an agent, tool or model resolution failure at
	// gateway startup.
	ErrInitialization = errors.New("initialization failed")
	// ErrRequest is a failure while serving a single gateway request.
	ErrRequest = errors.New("request failed")
)

// Error wraps an underlying error with a user-facing reason.
//
// Reason is meant to be short and actionable; Err may contain technical details.
// When Err is nil, Error() falls back to Reason. Kind, when set, makes the
// error match one of the sentinel kinds above.
type Error struct {
	Kind   error
	Err    error
	Reason string
}

// Wrap creates an Error with the given underlying error and user-facing reason.
func Wrap(err error, reason string) Error {
	return Error{Err: err, Reason: reason}
}

// Wrapf creates an Error with the given underlying error and a formatted reason.
func Wrapf(err error, format string, a ...any) Error {
	return Error{Err: err, Reason: fmt.Sprintf(format, a...)}
}

// New creates an Error of the given kind.
func New(kind, err error, reason string) Error {
	return Error{Kind: kind, Err: err, Reason: reason}
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Reason != "" {
		return e.Reason
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown error"
}

func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// ReasonText returns the user-facing reason for the error.
func (e Error) ReasonText() string {
	return e.Reason
}
