package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailure means the auth endpoint rejected the credentials or token.
	ErrAuthenticationFailure = errors.New("authentication failed")
	// ErrPersistence means the durable store could not be written.
	ErrPersistence = errors.New("session persistence failed")
	// ErrMalformedStoredData means the persisted session could not be decoded.
	ErrMalformedStoredData = errors.New("malformed stored session")
	// ErrInvalidCredential is returned for an empty credential or login secret.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidIdentity is returned for an identity without id or username.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrNotInitialized is returned by mutations issued before Initialize.
	ErrNotInitialized = errors.New("session manager not initialized")
	// ErrRemoteUnavailable means the auth endpoint could not be reached or is not configured.
	ErrRemoteUnavailable = errors.New("remote auth unavailable")
)

// FailureKind classifies an operation failure so callers can branch on it.
type FailureKind uint8

const (
	// FailureNone is reported for a nil error.
	FailureNone FailureKind = iota
	// FailureAuthentication: stay signed out and tell the user.
	FailureAuthentication
	// FailurePersistence: the sign-in did not take effect and may be retried.
	FailurePersistence
	// FailureInvalidInput: the caller passed an unusable credential or identity.
	FailureInvalidInput
	// FailureNotReady: Initialize has not completed.
	FailureNotReady
	// FailureUnavailable: the auth endpoint was unreachable.
	FailureUnavailable
)

// String returns the snake_case kind name.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureAuthentication:
		return "authentication"
	case FailurePersistence:
		return "persistence"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureNotReady:
		return "not_ready"
	case FailureUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the error type returned by [Manager] operations.
type Error struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that did not come from a [Manager] are
// classified by the sentinel they wrap; anything else is reported as
// FailureUnavailable.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	switch {
	case errors.Is(err, ErrAuthenticationFailure):
		return FailureAuthentication
	case errors.Is(err, ErrPersistence):
		return FailurePersistence
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrInvalidIdentity):
		return FailureInvalidInput
	case errors.Is(err, ErrNotInitialized):
		return FailureNotReady
	case errors.Is(err, ErrRemoteUnavailable):
		return FailureUnavailable
	default:
		return FailureUnavailable
	}
}

func opError(op string, kind FailureKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
