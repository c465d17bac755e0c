// Package errs defines a non-overlapping error taxonomy as a typed
// Kind, plus sentinel errors per component, so handlers can map an
// error to the correct wire response without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the error taxonomy's non-overlapping categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindAdapter
	KindChecksum
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuth:
		return "AuthError"
	case KindNotFound:
		return "NotFoundError"
	case KindConflict:
		return "ConflictError"
	case KindAdapter:
		return "AdapterError"
	case KindChecksum:
		return "ChecksumError"
	case KindTimeout:
		return "TimeoutError"
	case KindInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is a taxonomy-tagged error that wraps an underlying cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the taxonomy category of err, or KindUnknown if err is
// not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.kind
	}
	return KindUnknown
}

func newKind(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func Validation(msg string, err error) *Error { return newKind(KindValidation, msg, err) }
func Auth(msg string, err error) *Error       { return newKind(KindAuth, msg, err) }
func NotFound(msg string, err error) *Error   { return newKind(KindNotFound, msg, err) }
func Conflict(msg string, err error) *Error   { return newKind(KindConflict, msg, err) }
func Adapter(msg string, err error) *Error    { return newKind(KindAdapter, msg, err) }
func Checksum(msg string, err error) *Error   { return newKind(KindChecksum, msg, err) }
func Timeout(msg string, err error) *Error    { return newKind(KindTimeout, msg, err) }
func Internal(msg string, err error) *Error   { return newKind(KindInternal, msg, err) }
