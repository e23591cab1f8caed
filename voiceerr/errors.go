// Package voiceerr defines the error taxonomy shared by ingestion, analysis
// and the streaming engine.
package voiceerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to decide how to surface it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidInput covers bad or missing files, disallowed types and
	// malformed chunk payloads. Never retried.
	KindInvalidInput
	// KindInsufficientSignal covers audio that is too short, silent or
	// lacks voiced frames.
	KindInsufficientSignal
	// KindDependencyUnavailable is reported when an external tool such as
	// ffmpeg is missing.
	KindDependencyUnavailable
	// KindRateLimited is raised by the streaming engine when a session
	// exceeds its chunk budget.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientSignal:
		return "insufficient_signal"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	case KindRateLimited:
		return "rate_limit_exceeded"
	default:
		return "unknown"
	}
}

// Error is the concrete error type. Op names the operation that failed and
// Msg is safe to show to end users.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of Op and Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

var (
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrInsufficientSignal    = &Error{Kind: KindInsufficientSignal, Msg: "insufficient signal"}
	ErrDependencyUnavailable = &Error{Kind: KindDependencyUnavailable, Msg: "dependency unavailable"}
	ErrRateLimited           = &Error{Kind: KindRateLimited, Msg: "rate limit exceeded"}
)

func InvalidInput(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func InsufficientSignal(op, format string, args ...any) error {
	return &Error{Kind: KindInsufficientSignal, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func DependencyUnavailable(op string, err error, format string, args ...any) error {
	return &Error{Kind: KindDependencyUnavailable, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func RateLimited(op, format string, args ...any) error {
	return &Error{Kind: KindRateLimited, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns the user-facing message of err. Errors outside the
// taxonomy are reported generically.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInsufficientSignal:
		return http.StatusUnprocessableEntity
	case KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
