// Package apperr defines the error taxonomy shared by the cart and
// order services. Handlers map kinds to HTTP status codes; services
// never return raw store or transport errors to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidRequest
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two apperr errors match when their kinds match, so tests
// and callers can compare against a bare kind via Of.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Msg: msg} }
func InvalidRequest(msg string) error { return &Error{Kind: KindInvalidRequest, Msg: msg} }
func Conflict(msg string) error       { return &Error{Kind: KindConflict, Msg: msg} }
func Forbidden(msg string) error      { return &Error{Kind: KindForbidden, Msg: msg} }

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// Of returns a bare error of the given kind, useful as an errors.Is
// target.
func Of(k Kind) error { return &Error{Kind: k} }

// KindOf extracts the kind from err, defaulting to KindInternal for
// anything outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the human-readable message of err, or err.Error()
// when it is not an apperr error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
