package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/session"
)

// RotateOutcome tags the result of a rotation attempt.
type RotateOutcome int

const (
	RotateOK RotateOutcome = iota
	RotateInvalid
	RotateReplay
	RotateUnavailable
	RotateRateLimited
)

// ReplayAction selects what happens to sessions when reuse is detected.
type ReplayAction int

const (
	ReplayRevokeFamily ReplayAction = iota
	ReplayRevokeAll
	ReplayFlagOnly
)

// RotateResult carries either the successor pair or failure metadata.
type RotateResult struct {
	Outcome RotateOutcome
	Reason  string
	Err     error
	Subject string
	Family  string
	Access  jwt.Issued
	Refresh jwt.Issued
	User    UserRecord
	Revoked int

	// RevokeErr is set when the replay response could not revoke sessions.
	RevokeErr error
}

type RotateStore interface {
	Consume(ctx context.Context, subject, family, token string) (*session.Record, error)
	IsConsumed(ctx context.Context, subject, family, token string) (bool, error)
	Advance(ctx context.Context, subject, family, consumed, next string) (*session.Record, error)
	RevokeFamily(ctx context.Context, subject, family string) (bool, error)
	RevokeAll(ctx context.Context, subject string) (int, error)
}

type RotateRateLimiter interface {
	CheckRefresh(ctx context.Context, family string) error
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	DecodeRefresh  func(string) (*jwt.Claims, error)
	IssueAccess    func(subject, email string, roles []string) (jwt.Issued, error)
	IssueRefresh   func(subject, family string) (jwt.Issued, error)
	NormalizeRoles func([]string) []string
	Users          UserLookup
	Store          RotateStore
	RateLimiter    RotateRateLimiter
	OnReplay       ReplayAction
}

// RunRotate exchanges a refresh credential for a successor pair. A presented
// credential is accepted at most once; presenting a consumed one reports
// RotateReplay and applies deps.OnReplay.
func RunRotate(ctx context.Context, token string, deps RotateDeps) RotateResult {
	claims, err := deps.DecodeRefresh(token)
	if err != nil {
		return RotateResult{Outcome: RotateInvalid, Reason: "decode_failed", Err: err}
	}
	subject, family := claims.Subject, claims.Family
	if family == "" {
		return RotateResult{Outcome: RotateInvalid, Reason: "missing_family", Subject: subject}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, family); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				// Reuse outranks the throttle so a flood of replays still alerts.
				if used, cerr := deps.Store.IsConsumed(ctx, subject, family, token); cerr == nil && used {
					return applyReplayAction(ctx, RotateResult{
						Outcome: RotateReplay,
						Reason:  "refresh_reuse",
						Err:     session.ErrTokenReplayed,
						Subject: subject,
						Family:  family,
					}, deps)
				}
				return RotateResult{Outcome: RotateRateLimited, Reason: "rate_limited", Err: err, Subject: subject, Family: family}
			}
			return RotateResult{Outcome: RotateUnavailable, Reason: "rate_limiter", Err: err, Subject: subject, Family: family}
		}
	}

	// The account is read before the credential is consumed so a lookup
	// outage never burns a valid refresh token.
	user, err := deps.Users.GetByID(ctx, subject)
	if err != nil {
		if deps.Users.NotFound != nil && errors.Is(err, deps.Users.NotFound) {
			_, _ = deps.Store.RevokeFamily(ctx, subject, family)
			return RotateResult{Outcome: RotateInvalid, Reason: "user_not_found", Err: err, Subject: subject, Family: family}
		}
		return RotateResult{Outcome: RotateUnavailable, Reason: "user_lookup", Err: err, Subject: subject, Family: family}
	}
	if !user.Active {
		_, _ = deps.Store.RevokeFamily(ctx, subject, family)
		return RotateResult{Outcome: RotateInvalid, Reason: "user_inactive", Subject: subject, Family: family, User: user}
	}

	roles := user.Roles
	if deps.NormalizeRoles != nil {
		roles = deps.NormalizeRoles(roles)
	}
	access, err := deps.IssueAccess(subject, user.Email, roles)
	if err != nil {
		return RotateResult{Outcome: RotateInvalid, Reason: "issue_access_failed", Err: err, Subject: subject, Family: family}
	}
	refresh, err := deps.IssueRefresh(subject, family)
	if err != nil {
		return RotateResult{Outcome: RotateInvalid, Reason: "issue_refresh_failed", Err: err, Subject: subject, Family: family}
	}

	if _, err := deps.Store.Consume(ctx, subject, family, token); err != nil {
		switch {
		case errors.Is(err, session.ErrTokenReplayed):
			return applyReplayAction(ctx, RotateResult{
				Outcome: RotateReplay,
				Reason:  "refresh_reuse",
				Err:     err,
				Subject: subject,
				Family:  family,
				User:    user,
			}, deps)
		case errors.Is(err, session.ErrRecordCorrupt):
			_, _ = deps.Store.RevokeFamily(ctx, subject, family)
			return RotateResult{Outcome: RotateInvalid, Reason: "record_corrupt", Err: err, Subject: subject, Family: family}
		case errors.Is(err, session.ErrRecordNotFound):
			return RotateResult{Outcome: RotateInvalid, Reason: "session_not_found", Err: err, Subject: subject, Family: family}
		case errors.Is(err, session.ErrTokenMismatch):
			return RotateResult{Outcome: RotateInvalid, Reason: "token_mismatch", Err: err, Subject: subject, Family: family}
		case errors.Is(err, session.ErrInvalidKey):
			return RotateResult{Outcome: RotateInvalid, Reason: "invalid_key", Err: err, Subject: subject, Family: family}
		default:
			return RotateResult{Outcome: RotateUnavailable, Reason: "consume_failed", Err: err, Subject: subject, Family: family}
		}
	}

	if _, err := deps.Store.Advance(ctx, subject, family, token, refresh.Token); err != nil {
		if errors.Is(err, session.ErrFamilyRevoked) {
			return RotateResult{Outcome: RotateInvalid, Reason: "family_revoked", Err: err, Subject: subject, Family: family}
		}
		return RotateResult{Outcome: RotateUnavailable, Reason: "advance_failed", Err: err, Subject: subject, Family: family}
	}

	return RotateResult{
		Outcome: RotateOK,
		Subject: subject,
		Family:  family,
		Access:  access,
		Refresh: refresh,
		User:    user,
	}
}

func applyReplayAction(ctx context.Context, res RotateResult, deps RotateDeps) RotateResult {
	switch deps.OnReplay {
	case ReplayRevokeAll:
		n, err := deps.Store.RevokeAll(ctx, res.Subject)
		res.Revoked = n
		res.RevokeErr = err
	case ReplayFlagOnly:
	default:
		removed, err := deps.Store.RevokeFamily(ctx, res.Subject, res.Family)
		if removed {
			res.Revoked = 1
		}
		res.RevokeErr = err
	}
	return res
}
