package sessioncore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventRefreshUnavailable   = "refresh_unavailable"
	auditEventLogout               = "logout"
	auditEventRevokeAll            = "revoke_all"
	auditEventPermissionDenied     = "permission_denied"
)

// AuditErrorCode is the stable error label carried in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditEntry is the engine-side view of one event before request metadata
// from ctx is attached.
type auditEntry struct {
	eventType string
	success   bool
	alert     bool
	subject   string
	family    string
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, entry auditEntry) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if entry.metadata != nil {
		metadata = entry.metadata()
	}

	event := AuditEvent{
		Timestamp:     e.now().UTC(),
		EventType:     entry.eventType,
		Subject:       entry.subject,
		Family:        entry.family,
		IP:            ClientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		RequestID:     RequestIDFromContext(ctx),
		Success:       entry.success,
		SecurityAlert: entry.alert,
		Metadata:      metadata,
	}
	if code := auditErrorCode(entry.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) now() time.Time {
	if e != nil && e.codec != nil {
		return e.codec.Now()
	}
	return time.Now()
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
