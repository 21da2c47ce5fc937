package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error a service returns to a caller wraps exactly one
// of these, so callers branch with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad_request")
	ErrNotFound     = errors.New("not_found")
	ErrInternal     = errors.New("internal_error")
)

// Error is a service failure with a stable machine code and a short message
// that is safe to show to the caller.
type Error struct {
	Kind    error
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

func newError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func unauthorized(msg string) *Error { return newError(ErrUnauthorized, "unauthorized", msg) }
func forbidden(msg string) *Error    { return newError(ErrForbidden, "forbidden", msg) }
func conflict(msg string) *Error     { return newError(ErrConflict, "conflict", msg) }
func badRequest(msg string) *Error   { return newError(ErrBadRequest, "bad_request", msg) }
func notFound(msg string) *Error     { return newError(ErrNotFound, "not_found", msg) }

// internal wraps an unexpected downstream failure. Deadline overruns keep a
// distinct code so clients know the call may be retried.
func internal(msg string, cause error) *Error {
	e := newError(ErrInternal, "internal_error", msg)
	if errors.Is(cause, context.DeadlineExceeded) {
		e.Code = "timeout"
		e.Message = "upstream store timed out"
	}
	e.cause = cause
	return e
}

// asServiceError returns err unchanged if it already is a service error,
// otherwise wraps it as internal.
func asServiceError(msg string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal(msg, err)
}

// DefaultStoreTimeout bounds every call into the identity or session store.
const DefaultStoreTimeout = 5 * time.Second

// storeCtx bounds a read by the store timeout.
func storeCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// writeCtx bounds a write by the store timeout but detaches it from the
// caller's cancellation, so a disconnecting client cannot abandon a
// transaction half way.
func writeCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return storeCtx(context.WithoutCancel(ctx), d)
}
