package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

const (
	auditEventSessionRestored        = "session_restored"
	auditEventSessionRestoreRejected = "session_restore_rejected"
	auditEventSignIn                 = "sign_in"
	auditEventSignInFailure          = "sign_in_failure"
	auditEventSignOut                = "sign_out"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventRevalidateRejected     = "revalidate_rejected"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrAuthentication AuditErrorCode = "authentication_failed"
	auditErrPersistence    AuditErrorCode = "persistence_failed"
	auditErrMalformed      AuditErrorCode = "malformed_stored_data"
	auditErrExpired        AuditErrorCode = "credential_expired"
	auditErrInvalidInput   AuditErrorCode = "invalid_input"
	auditErrNotReady       AuditErrorCode = "not_initialized"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

var errCredentialExpired = errors.New("stored credential expired")

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Status:    m.Status().String(),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errCredentialExpired):
		return auditErrExpired
	case errors.Is(err, ErrAuthenticationFailure), errors.Is(err, remote.ErrRejected):
		return auditErrAuthentication
	case errors.Is(err, ErrMalformedStoredData),
		errors.Is(err, session.ErrMalformed),
		errors.Is(err, session.ErrIncomplete):
		return auditErrMalformed
	case errors.Is(err, ErrPersistence), errors.Is(err, session.ErrBackendUnavailable):
		return auditErrPersistence
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrInvalidIdentity):
		return auditErrInvalidInput
	case errors.Is(err, ErrNotInitialized):
		return auditErrNotReady
	case errors.Is(err, ErrRemoteUnavailable), errors.Is(err, remote.ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
