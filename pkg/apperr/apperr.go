// Package apperr classifies errors so HTTP handlers can map them to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of an application error.
type Kind uint8

const (
	Internal Kind = iota
	Validation
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	TooManyRequests
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation failed"
	case Unauthenticated:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case TooManyRequests:
		return "too many requests"
	default:
		return "internal error"
	}
}

// Error is an error with a Kind and a client-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text safe to show to API clients.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Kind == Internal && e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// New returns an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err. A nil err stays nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client-facing message for any error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
