// Package apperror defines the error taxonomy shared by the domain services,
// the stores and the HTTP layer.
package apperror

import (
	"errors"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified error carrying a short human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Kind sentinels. errors.Is(err, ErrConflict) matches any *Error of that kind.
var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAuthorization = &Error{Kind: KindAuthorization, Message: "not authorized"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "conflict"}
	ErrStore         = &Error{Kind: KindStore, Message: "store unavailable"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t == sentinel(e.Kind)
}

func sentinel(k Kind) *Error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindAuthorization:
		return ErrAuthorization
	case KindConflict:
		return ErrConflict
	case KindStore:
		return ErrStore
	default:
		return nil
	}
}

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }

// Store wraps an underlying store failure.
func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

// Wrap classifies err under kind with a user-facing message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the human-readable message of the first *Error in err's
// chain, without the wrapped cause. Unclassified errors get a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
