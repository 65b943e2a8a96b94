package sessioncore

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/sessioncore/internal/audit"
	"github.com/MrEthical07/sessioncore/internal/flows"
	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/password"
	"github.com/MrEthical07/sessioncore/permission"
	"github.com/MrEthical07/sessioncore/session"
	"go.uber.org/zap"
)

// Engine issues, verifies, rotates and revokes credentials. It is built once
// by [Builder] and is safe for concurrent use.
type Engine struct {
	config       Config
	registry     *permission.Registry
	codec        *jwt.Codec
	issuer       *jwt.Issuer
	store        *session.Store
	bounded      boundedStore
	rateLimiter  *rate.Limiter
	passwords    *password.Verifier
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	userProvider UserProvider
	logger       *zap.Logger
	replay       flows.ReplayAction
	flow         flows.Service
}

func (e *Engine) initFlowDeps() {
	users := e.userLookup()
	limiter := boundedLimiter{limiter: e.rateLimiter, timeout: e.config.Session.OperationTimeout}

	decodeAccess := func(tok string) (*jwt.Claims, error) {
		return e.codec.DecodeKind(tok, jwt.KindAccess)
	}
	issueRefresh := func(subject, family string) (jwt.Issued, error) {
		return e.issuer.IssueRefreshToken(subject, family, nil)
	}

	e.flow = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			ClientIPFromContext: ClientIPFromContext,
			Now:                 e.codec.Now,
			UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
			DefaultRole:         e.config.Security.DefaultRole,
			NormalizeRoles:      permission.Normalize,
			Users:               users,
			Passwords:           e.passwords,
			RateLimiter:         limiter,
			Store:               e.bounded,
			IssueAccess:         e.issuer.IssueAccessToken,
			IssueRefresh:        issueRefresh,
			Logger:              e.logger,
		},
		Rotate: flows.RotateDeps{
			DecodeRefresh: func(tok string) (*jwt.Claims, error) {
				return e.codec.DecodeKind(tok, jwt.KindRefresh)
			},
			IssueAccess:    e.issuer.IssueAccessToken,
			IssueRefresh:   issueRefresh,
			NormalizeRoles: e.rolesForToken,
			Users:          users,
			Store:          e.bounded,
			RateLimiter:    limiter,
			OnReplay:       e.replay,
		},
		Validate: flows.ValidateDeps{
			DecodeAccess:   decodeAccess,
			NormalizeRoles: permission.Normalize,
		},
		Revoke: flows.RevokeDeps{
			DecodeAccess:      decodeAccess,
			Store:             e.bounded,
			EngineNotReadyErr: ErrEngineNotReady,
		},
	})
}

// rolesForToken normalizes roles and applies the default role, matching
// what login embeds.
func (e *Engine) rolesForToken(roles []string) []string {
	out := permission.Normalize(roles)
	if len(out) == 0 && e.config.Security.DefaultRole != "" {
		out = []string{e.config.Security.DefaultRole}
	}
	return out
}

func (e *Engine) userLookup() flows.UserLookup {
	up := e.userProvider
	return flows.UserLookup{
		GetByID: func(ctx context.Context, id string) (flows.UserRecord, error) {
			u, err := up.GetByID(ctx, id)
			return toFlowUser(u), err
		},
		GetByEmail: func(ctx context.Context, email string) (flows.UserRecord, error) {
			u, err := up.GetByEmail(ctx, email)
			return toFlowUser(u), err
		},
		Save: func(ctx context.Context, u flows.UserRecord) error {
			return up.Save(ctx, fromFlowUser(u))
		},
		NotFound: ErrUserNotFound,
	}
}

func toFlowUser(u UserRecord) flows.UserRecord {
	return flows.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Active:       u.Active,
		LastLogin:    u.LastLogin,
	}
}

func fromFlowUser(u flows.UserRecord) UserRecord {
	return UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Active:       u.Active,
		LastLogin:    u.LastLogin,
	}
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.flow.Initialized()
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Registry returns the frozen role vocabulary.
func (e *Engine) Registry() *permission.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

func (e *Engine) pair(access, refresh jwt.Issued) *TokenPair {
	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "bearer",
		ExpiresIn:    int64(e.issuer.AccessTTL() / time.Second),
	}
}

// Login verifies email and password and opens a new token family. Unknown
// accounts, wrong passwords and inactive accounts all return
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.Login(ctx, email, password)
	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventLoginSuccess,
			success:   true,
			subject:   res.User.ID,
			family:    res.Family,
		})
		return e.pair(res.Access, res.Refresh), nil

	case flows.LoginFailureCredentials:
		e.metricInc(MetricLoginFailure)
		e.logger.Debug("login rejected", zap.String("reason", res.Reason), zap.String("request_id", RequestIDFromContext(ctx)))
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventLoginFailure,
			subject:   res.User.ID,
			err:       ErrInvalidCredentials,
			metadata: func() map[string]string {
				return map[string]string{"reason": res.Reason}
			},
		})
		return nil, ErrInvalidCredentials

	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventLoginRateLimited,
			subject:   res.User.ID,
			err:       ErrLoginRateLimited,
		})
		return nil, ErrLoginRateLimited

	case flows.LoginFailureUnavailable:
		e.metricInc(MetricStoreUnavailable)
		e.logger.Error("login backend unavailable", zap.String("reason", res.Reason), zap.Error(res.Err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)

	default:
		e.logger.Error("login credential issuance failed", zap.String("reason", res.Reason), zap.String("subject", res.User.ID), zap.Error(res.Err))
		return nil, fmt.Errorf("sessioncore: issue credentials: %w", res.Err)
	}
}

// Rotate exchanges a refresh credential for a successor pair and reports the
// outcome as a tagged result. Each credential rotates at most once.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) RotationResult {
	if !e.ready() {
		return RotationResult{Outcome: RotationUnavailable, Err: ErrEngineNotReady}
	}

	start := time.Now()
	res := e.flow.Rotate(ctx, refreshToken)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}

	out := RotationResult{Subject: res.Subject, Family: res.Family, Revoked: res.Revoked}
	switch res.Outcome {
	case flows.RotateOK:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRefreshSuccess,
			success:   true,
			subject:   res.Subject,
			family:    res.Family,
		})
		out.Outcome = RotationOK
		out.Tokens = e.pair(res.Access, res.Refresh)

	case flows.RotateReplay:
		e.metricInc(MetricRefreshReuseDetected)
		e.metrics.Add(MetricSessionRevoked, uint64(res.Revoked))
		e.logger.Warn("refresh token reuse detected",
			zap.String("subject", res.Subject),
			zap.String("token_family", res.Family),
			zap.Int("revoked", res.Revoked),
			zap.String("policy", string(e.config.Security.ReplayPolicy)),
			zap.String("ip", ClientIPFromContext(ctx)),
			zap.String("request_id", RequestIDFromContext(ctx)),
		)
		if res.RevokeErr != nil {
			e.metricInc(MetricStoreUnavailable)
			e.logger.Error("revocation after reuse failed", zap.String("subject", res.Subject), zap.Error(res.RevokeErr))
		}
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRefreshReuseDetected,
			alert:     true,
			subject:   res.Subject,
			family:    res.Family,
			err:       ErrRefreshReuse,
			metadata: func() map[string]string {
				return map[string]string{
					"policy":  string(e.config.Security.ReplayPolicy),
					"revoked": fmt.Sprint(res.Revoked),
				}
			},
		})
		out.Outcome = RotationReplay
		out.Err = &ReplayError{Subject: res.Subject, Family: res.Family, Revoked: res.Revoked}

	case flows.RotateRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRefreshRateLimited,
			subject:   res.Subject,
			family:    res.Family,
			err:       ErrRefreshRateLimited,
		})
		out.Outcome = RotationRateLimited
		out.Err = ErrRefreshRateLimited

	case flows.RotateUnavailable:
		e.metricInc(MetricRefreshUnavailable)
		e.metricInc(MetricStoreUnavailable)
		e.logger.Error("refresh backend unavailable",
			zap.String("reason", res.Reason),
			zap.String("subject", res.Subject),
			zap.Error(res.Err),
		)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRefreshUnavailable,
			subject:   res.Subject,
			family:    res.Family,
			err:       ErrStoreUnavailable,
		})
		out.Outcome = RotationUnavailable
		out.Err = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)

	default:
		e.metricInc(MetricRefreshFailure)
		e.logger.Debug("refresh rejected",
			zap.String("reason", res.Reason),
			zap.String("subject", res.Subject),
			zap.NamedError("cause", res.Err),
		)
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRefreshInvalid,
			subject:   res.Subject,
			family:    res.Family,
			err:       ErrRefreshInvalid,
			metadata: func() map[string]string {
				return map[string]string{"reason": res.Reason}
			},
		})
		out.Outcome = RotationInvalid
		out.Err = fmt.Errorf("%w: %s", ErrRefreshInvalid, res.Reason)
	}
	return out
}

// Refresh is [Engine.Rotate] in error-return form. Reuse is reported as a
// *[ReplayError].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	res := e.Rotate(ctx, refreshToken)
	if res.Outcome != RotationOK {
		return nil, res.Err
	}
	return res.Tokens, nil
}

// ValidateAccess verifies an access credential without touching the store.
// Refresh credentials are rejected.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := e.flow.Validate(tokenStr)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if res.Err != nil {
		e.metricInc(MetricValidateFailure)
		e.logger.Debug("access credential rejected", zap.NamedError("cause", res.Err), zap.String("request_id", RequestIDFromContext(ctx)))
		return nil, ErrInvalidToken
	}

	return &AuthResult{
		Subject: res.Subject,
		Email:   res.Email,
		Roles:   res.Roles,
	}, nil
}

// Authorize validates an access credential and requires at least one of
// roles. The superset role satisfies any requirement. An empty or unknown
// requirement is a programming error and is returned as such.
func (e *Engine) Authorize(ctx context.Context, tokenStr string, roles ...string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	required, err := e.registry.Requirement(roles...)
	if err != nil {
		return nil, err
	}
	result, err := e.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if err := e.CheckRoles(ctx, result, required...); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckRoles reports [ErrPermissionDenied] unless result satisfies one of
// required. Callers are expected to have checked required against the
// registry.
func (e *Engine) CheckRoles(ctx context.Context, result *AuthResult, required ...string) error {
	if result == nil {
		return ErrUnauthorized
	}
	if e.registry.Satisfies(result.Roles, required) {
		return nil
	}
	e.metricInc(MetricPermissionDenied)
	e.emitAudit(ctx, auditEntry{
		eventType: auditEventPermissionDenied,
		subject:   result.Subject,
		err:       ErrPermissionDenied,
		metadata: func() map[string]string {
			return map[string]string{"required": fmt.Sprint(required)}
		},
	})
	return ErrPermissionDenied
}

// Logout revokes every session of the subject behind an access credential
// and returns the number of families removed.
func (e *Engine) Logout(ctx context.Context, accessToken string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	res := e.flow.Logout(ctx, accessToken)
	if res.Invalid {
		e.metricInc(MetricValidateFailure)
		return 0, ErrInvalidToken
	}
	return e.finishRevokeAll(ctx, auditEventLogout, res.Subject, res.Revoked, res.Err)
}

// RevokeAll removes every token family of subject. It is best-effort: on a
// partial failure the count of removed families is returned together with
// an error wrapping [ErrStoreUnavailable].
func (e *Engine) RevokeAll(ctx context.Context, subject string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.flow.RevokeAll(ctx, subject)
	return e.finishRevokeAll(ctx, auditEventRevokeAll, subject, n, err)
}

func (e *Engine) finishRevokeAll(ctx context.Context, eventType, subject string, n int, err error) (int, error) {
	e.metrics.Add(MetricSessionRevoked, uint64(n))
	if eventType == auditEventLogout {
		e.metricInc(MetricLogout)
	}
	if err != nil {
		if errors.Is(err, session.ErrInvalidKey) {
			return 0, fmt.Errorf("%w: %v", ErrUserNotFound, err)
		}
		e.metricInc(MetricStoreUnavailable)
		e.logger.Error("session revocation incomplete", zap.String("subject", subject), zap.Int("revoked", n), zap.Error(err))
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.emitAudit(ctx, auditEntry{
		eventType: eventType,
		success:   err == nil,
		subject:   subject,
		err:       err,
		metadata: func() map[string]string {
			return map[string]string{"revoked": fmt.Sprint(n)}
		},
	})
	return n, err
}
