package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so handlers can pick the right HTTP status
// and callers can decide whether a retry makes sense.
type Kind int

const (
	// KindValidation is malformed input, caught before any persistence.
	KindValidation Kind = iota + 1
	// KindLockContention means another holder owns the lease. Retryable,
	// not a caller bug.
	KindLockContention
	// KindNotFound covers missing products, variants, orders and vendors.
	KindNotFound
	// KindConflict covers duplicate receipts/rejections and illegal
	// state transitions.
	KindConflict
	// KindInternal is a persistence or backing-store failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindLockContention:
		return "lock_contention"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is the kind-tagged error used across the core services.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a new tagged error with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error while keeping it reachable via errors.Is/As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain.
// Untagged errors are treated as internal failures.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the response status the handlers use.
// Lock contention deliberately reads as "try again shortly" (429), never
// as a generic server error.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindLockContention:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
