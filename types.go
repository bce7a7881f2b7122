package goSession

import (
	"context"
	"io"

	internalaudit "github.com/fisioonhand/goSession/internal/audit"
	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

// Snapshot is an immutable view of the session at one instant.
//
// Snapshots returned by the [Manager] are copies; modifying one does not
// affect the manager or other readers.
type Snapshot = session.Session

// Identity is the practitioner profile carried by an authenticated session.
type Identity = session.Identity

// Status is the lifecycle phase of a session.
type Status = session.Status

const (
	// StatusInitializing is reported until Initialize completes.
	StatusInitializing = session.StatusInitializing
	// StatusUnauthenticated means no credential is held.
	StatusUnauthenticated = session.StatusUnauthenticated
	// StatusAuthenticated means a credential and identity are held.
	StatusAuthenticated = session.StatusAuthenticated
)

// Listener observes session transitions. Listeners run synchronously while
// the manager holds its writer lock, in subscription order. A listener must
// not call SignIn, SignOut, Login, Revalidate or Initialize on the same
// manager; doing so deadlocks.
type Listener func(Snapshot)

// Authenticator is the remote side of the login flow. [remote.Client]
// implements it.
//
// Implementations report a rejection by wrapping [remote.ErrRejected]; any
// other error is treated as the endpoint being unavailable.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (remote.Token, error)
	Verify(ctx context.Context, credential string) (session.Identity, error)
}

// AuditEvent is a structured audit record emitted by the manager.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the manager's audit dispatcher.
type AuditSink = internalaudit.Sink

// ErrAuditDrainTimeout is wrapped by [Manager.Close] when queued audit events
// could not be delivered within Audit.DrainTimeout.
var ErrAuditDrainTimeout = internalaudit.ErrDrainTimeout

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
