package goSession

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fisioonhand/goSession/remote"
)

// Login authenticates email and password against the auth endpoint, resolves
// the practitioner identity for the issued token, and signs in with both.
//
// A rejection by the endpoint has kind FailureAuthentication and leaves the
// session untouched. An unreachable endpoint has kind FailureUnavailable.
// Store failures surface from [Manager.SignIn] with kind FailurePersistence.
func (m *Manager) Login(ctx context.Context, email, password string) (Snapshot, error) {
	const op = "login"

	if ctx == nil {
		ctx = context.Background()
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return m.Snapshot(), opError(op, FailureInvalidInput, ErrInvalidCredential)
	}
	if !m.isInitialized() {
		return m.Snapshot(), opError(op, FailureNotReady, ErrNotInitialized)
	}
	if m.auth == nil {
		return m.Snapshot(), opError(op, FailureUnavailable, fmt.Errorf("%w: no authenticator configured", ErrRemoteUnavailable))
	}

	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return m.Snapshot(), m.loginFailed(ctx, op, email, err)
	}

	identity, err := m.auth.Verify(ctx, token.Value)
	if err != nil {
		return m.Snapshot(), m.loginFailed(ctx, op, email, err)
	}

	snap, err := m.SignIn(ctx, token.Value, identity)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, identity.ID, err, nil)
		return snap, err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, nil, func() map[string]string {
		return map[string]string{"expires_in": token.ExpiresIn.String()}
	})
	return snap, nil
}

func (m *Manager) loginFailed(ctx context.Context, op, email string, err error) error {
	if errors.Is(err, remote.ErrRejected) {
		m.metrics.Inc(MetricLoginFailure)
		m.logger.Info("session.login.rejected", "err", err)
		failure := fmt.Errorf("%w: %w", ErrAuthenticationFailure, err)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", failure, func() map[string]string {
			return map[string]string{"email": email}
		})
		return opError(op, FailureAuthentication, failure)
	}

	m.metrics.Inc(MetricLoginUnavailable)
	m.logger.Warn("session.login.unavailable", "err", err)
	failure := fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	m.emitAudit(ctx, auditEventLoginFailure, false, "", failure, func() map[string]string {
		return map[string]string{"email": email}
	})
	return opError(op, FailureUnavailable, failure)
}

// Revalidate checks the current credential with the auth endpoint. If the
// endpoint rejects it the session is signed out and the error has kind
// FailureAuthentication. An unreachable endpoint leaves the session in place.
// Revalidate on a signed-out manager is a no-op.
func (m *Manager) Revalidate(ctx context.Context) (Snapshot, error) {
	const op = "revalidate"

	if ctx == nil {
		ctx = context.Background()
	}
	current := m.Snapshot()
	if !current.IsAuthenticated() {
		return current, nil
	}
	if m.auth == nil {
		return current, opError(op, FailureUnavailable, fmt.Errorf("%w: no authenticator configured", ErrRemoteUnavailable))
	}

	_, err := m.auth.Verify(ctx, current.Credential)
	switch {
	case err == nil:
		m.metrics.Inc(MetricRevalidateSuccess)
		return current, nil
	case !errors.Is(err, remote.ErrRejected):
		m.logger.Warn("session.revalidate.unavailable", "err", err)
		return current, opError(op, FailureUnavailable, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
	}

	failure := fmt.Errorf("%w: %w", ErrAuthenticationFailure, err)
	m.metrics.Inc(MetricRevalidateRejected)
	m.emitAudit(ctx, auditEventRevalidateRejected, false, current.Identity.ID, failure, nil)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A sign-in that raced with the verify call owns the session now.
	if cred, _ := m.Credential(); cred != current.Credential {
		return m.Snapshot(), opError(op, FailureAuthentication, failure)
	}
	return m.signOutLocked(ctx, "revoked"), opError(op, FailureAuthentication, failure)
}

func (m *Manager) isInitialized() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}
