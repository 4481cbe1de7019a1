package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a runtime failure. Every error crossing a component
// boundary carries a kind so callers can decide between retrying, surfacing
// the failure into the conversation, or aborting the request.
type ErrorKind string

const (
	// ErrProviderUnavailable is a transient provider failure (network,
	// timeout, rate limit). Retryable with bounded backoff.
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	// ErrInvalidArguments indicates a caller bug (bad schema, unknown tool
	// name, malformed request). Never retried.
	ErrInvalidArguments ErrorKind = "invalid_arguments"
	// ErrProviderRefused is a business-level rejection from a provider. It is
	// surfaced into the conversation as a tool turn, not a system failure.
	ErrProviderRefused ErrorKind = "provider_refused"
	// ErrStoreUnavailable is a persistence failure. Fatal for the request;
	// no partial state may remain.
	ErrStoreUnavailable ErrorKind = "store_unavailable"
	// ErrUnknownAgent means dispatch targeted an unregistered agent id.
	ErrUnknownAgent ErrorKind = "unknown_agent"
	// ErrNotFound means a referenced entity (memory record, session) does not
	// exist. An empty session or memory set is NOT an error.
	ErrNotFound ErrorKind = "not_found"
	// ErrDepthExceeded means the tool-call loop hit its configured bound.
	ErrDepthExceeded ErrorKind = "depth_exceeded"
)

// Error is the typed error used throughout the runtime.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a typed error without a cause.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a typed error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and context message to an underlying error.
func WrapError(kind ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from an error chain. Untyped errors map to
// the empty kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }

// IsRetryable reports whether err may be retried with backoff. Only transient
// provider failures qualify; everything else either surfaces or aborts.
func IsRetryable(err error) bool { return KindOf(err) == ErrProviderUnavailable }
