package fetch

import (
	"errors"
	"fmt"
	"time"
)

// ErrKind classifies why a source attempt produced nothing usable. The
// first three arise in the retrieval layer; Unparseable and BelowThreshold
// arise during extraction and validation but share the taxonomy so the
// chain controller can record every skip reason the same way.
type ErrKind string

const (
	ErrTransport      ErrKind = "transport"
	ErrRateLimited    ErrKind = "rate_limited"
	ErrHTTPStatus     ErrKind = "http_status"
	ErrUnparseable    ErrKind = "unparseable"
	ErrBelowThreshold ErrKind = "below_threshold"
)

// Error is the typed failure for one source attempt.
type Error struct {
	Kind   ErrKind
	Status int

	// RetryAfter carries a server-requested delay on rate limiting.
	RetryAfter time.Duration

	msg   string
	cause error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == ErrHTTPStatus:
		return fmt.Sprintf("http status %d", e.Status)
	case e.msg != "" && e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	case e.msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// NewTransport wraps a network or timeout failure.
func NewTransport(err error) *Error {
	return &Error{Kind: ErrTransport, cause: err}
}

// NewRateLimited marks an HTTP 429 response, keeping any Retry-After hint.
func NewRateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: ErrRateLimited, Status: 429, RetryAfter: retryAfter}
}

// NewHTTPStatus marks a non-success, non-429 response. Not retried.
func NewHTTPStatus(status int) *Error {
	return &Error{Kind: ErrHTTPStatus, Status: status}
}

// NewUnparseable marks a payload that held no recognizable field or pattern.
func NewUnparseable(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrUnparseable, msg: fmt.Sprintf(format, args...)}
}

// NewBelowThreshold marks an extracted amount under the game's plausibility
// floor, which almost always means the scanner latched onto page clutter.
func NewBelowThreshold(amount, minimum float64) *Error {
	return &Error{
		Kind: ErrBelowThreshold,
		msg:  fmt.Sprintf("amount %.2f under minimum %.2f", amount, minimum),
	}
}

// KindOf returns the taxonomy kind of err, or "" for untyped errors.
func KindOf(err error) ErrKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
