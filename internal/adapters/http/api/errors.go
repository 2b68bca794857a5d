package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidForm  = errors.New("registration is invalid")
	ErrInvalidEmail = errors.New("Please enter a valid email address") //nolint:stylecheck,revive // shown verbatim to visitors
	ErrBackpressure = errors.New("too many registrations in flight, try again shortly")
	ErrUnavailable  = errors.New("registrations are closed")
	ErrRateLimited  = errors.New("too many requests")
	ErrInternal     = errors.New("internal error")
)

// kindError ties an operation name to a sentinel kind and, optionally, the
// underlying cause. errors.Is matches both.
type kindError struct {
	op    string
	kind  error
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Op returns the operation that failed.
func (e *kindError) Op() string { return e.op }

// NewKind reports kind from op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind reports kind from op, caused by err.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, cause: err}
}

// Wrap reports an unexpected failure in op. The cause is kept for logs but
// the message shown to clients is the generic ErrInternal text.
func Wrap(op string, err error) error {
	return &internalError{kindError{op: op, kind: ErrInternal, cause: err}}
}

type internalError struct{ kindError }

func (e *internalError) Error() string { return ErrInternal.Error() }
