package task

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is so the HTTP
// layer can map each kind to a distinct response code.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("access denied")
	ErrState         = errors.New("invalid state")
	ErrNotFound      = errors.New("not found")
)

// ErrTerminal is the StateError raised for mutations against a
// completed task. It chains under ErrState so errors.Is(err, ErrState)
// still holds, while the HTTP layer can map terminal violations to a
// different response code.
var ErrTerminal = fmt.Errorf("%w: task is terminal", ErrState)

// Error wraps a lifecycle failure with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func deniedf(format string, args ...any) error {
	return &Error{Kind: ErrAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func statef(format string, args ...any) error {
	return &Error{Kind: ErrState, Msg: fmt.Sprintf(format, args...)}
}

func terminalf(format string, args ...any) error {
	return &Error{Kind: ErrTerminal, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}
