package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/session"
	"go.uber.org/zap"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureCredentials
	LoginFailureRateLimited
	LoginFailureUnavailable
	LoginFailureIssue
)

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Reason  string
	Err     error
	User    UserRecord
	Family  string
	Access  jwt.Issued
	Refresh jwt.Issued
}

type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	IncrementLogin(ctx context.Context, email, ip string) error
	ResetLogin(ctx context.Context, email, ip string) error
}

type PasswordVerifier interface {
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	Hash(password string) (string, error)
	Burn(password string)
}

type LoginStore interface {
	Create(ctx context.Context, subject, family, token string) (*session.Record, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time
	UpgradeOnLogin      bool
	DefaultRole         string
	NormalizeRoles      func([]string) []string
	Users               UserLookup
	Passwords           PasswordVerifier
	RateLimiter         LoginRateLimiter
	Store               LoginStore
	IssueAccess         func(subject, email string, roles []string) (jwt.Issued, error)
	IssueRefresh        func(subject, family string) (jwt.Issued, error)
	Logger              *zap.Logger
}

// RunLogin verifies credentials and opens a new token family. Unknown
// accounts, wrong passwords and inactive accounts fail identically.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = strings.ToLower(strings.TrimSpace(email))
	ip := ""
	if deps.ClientIPFromContext != nil {
		ip = deps.ClientIPFromContext(ctx)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Reason: "rate_limited", Err: err}
			}
			return LoginResult{Failure: LoginFailureUnavailable, Reason: "rate_limiter", Err: err}
		}
	}

	fail := func(reason string, user UserRecord) LoginResult {
		if deps.RateLimiter != nil {
			if err := deps.RateLimiter.IncrementLogin(ctx, email, ip); err != nil {
				if errors.Is(err, rate.ErrRateLimited) {
					return LoginResult{Failure: LoginFailureRateLimited, Reason: "rate_limited", Err: err, User: user}
				}
				logger.Warn("login attempt counter update failed", zap.Error(err))
			}
		}
		return LoginResult{Failure: LoginFailureCredentials, Reason: reason, User: user}
	}

	if email == "" || password == "" {
		return fail("empty_credentials", UserRecord{})
	}

	user, err := deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if deps.Users.NotFound != nil && errors.Is(err, deps.Users.NotFound) {
			deps.Passwords.Burn(password)
			return fail("user_not_found", UserRecord{})
		}
		return LoginResult{Failure: LoginFailureUnavailable, Reason: "user_lookup", Err: err}
	}

	ok, err := deps.Passwords.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			logger.Debug("password verification error", zap.String("subject", user.ID), zap.Error(err))
		}
		return fail("password_mismatch", user)
	}
	if !user.Active {
		return fail("inactive", user)
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, email, ip); err != nil {
			logger.Warn("login attempt counter reset failed", zap.Error(err))
		}
	}

	if deps.UpgradeOnLogin {
		if needsUpgrade, err := deps.Passwords.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := deps.Passwords.Hash(password); err == nil {
				user.PasswordHash = upgraded
			} else {
				logger.Warn("password hash upgrade generation failed", zap.String("subject", user.ID), zap.Error(err))
			}
		}
	}
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}
	now = now.UTC()
	user.LastLogin = &now

	// Account bookkeeping is best-effort and must not block a successful login.
	if deps.Users.Save != nil {
		if err := deps.Users.Save(ctx, user); err != nil {
			logger.Warn("user record update after login failed", zap.String("subject", user.ID), zap.Error(err))
		}
	}

	roles := user.Roles
	if deps.NormalizeRoles != nil {
		roles = deps.NormalizeRoles(roles)
	}
	if len(roles) == 0 && deps.DefaultRole != "" {
		roles = []string{deps.DefaultRole}
	}

	access, err := deps.IssueAccess(user.ID, user.Email, roles)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Reason: "issue_access_failed", Err: err, User: user}
	}
	refresh, err := deps.IssueRefresh(user.ID, "")
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Reason: "issue_refresh_failed", Err: err, User: user}
	}
	family := refresh.Claims.Family

	if _, err := deps.Store.Create(ctx, user.ID, family, refresh.Token); err != nil {
		if errors.Is(err, session.ErrInvalidKey) {
			return LoginResult{Failure: LoginFailureIssue, Reason: "invalid_subject", Err: err, User: user}
		}
		return LoginResult{Failure: LoginFailureUnavailable, Reason: "session_create", Err: err, User: user}
	}

	return LoginResult{
		User:    user,
		Family:  family,
		Access:  access,
		Refresh: refresh,
	}
}
