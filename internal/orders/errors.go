package orders

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a core failure.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NotFound"
	KindInvalidTransition ErrorKind = "InvalidTransition"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
)

// Error is returned by every failing core operation. The mutation it guards
// has not been applied.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "transition not permitted"}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
)

// KindOf extracts the kind from err, or "" when err did not come from the core.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func notFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("order %q not found", id)}
}

func invalidTransition(id string, from, to Status) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("order %q cannot move from %s to %s", id, from, to),
	}
}

func refusedf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func invalidArgumentf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentf builds an InvalidArgument error for callers outside the
// package (query parsing, request decoding).
func InvalidArgumentf(format string, args ...any) error {
	return invalidArgumentf(format, args...)
}
