package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/session"
)

type RevokeStore interface {
	RevokeAll(ctx context.Context, subject string) (int, error)
	List(ctx context.Context, subject string) ([]session.Info, error)
	Ping(ctx context.Context) (time.Duration, error)
}

// RevokeDeps captures revocation and introspection dependencies.
type RevokeDeps struct {
	DecodeAccess      func(string) (*jwt.Claims, error)
	Store             RevokeStore
	EngineNotReadyErr error
}

// LogoutResult reports the subject behind an access credential and how many
// of its families were removed.
type LogoutResult struct {
	Subject string
	Revoked int
	Err     error
	Invalid bool
}

func RunRevokeAll(ctx context.Context, subject string, deps RevokeDeps) (int, error) {
	if deps.Store == nil {
		return 0, deps.EngineNotReadyErr
	}
	return deps.Store.RevokeAll(ctx, subject)
}

func RunListSessions(ctx context.Context, subject string, deps RevokeDeps) ([]session.Info, error) {
	if deps.Store == nil {
		return nil, deps.EngineNotReadyErr
	}
	return deps.Store.List(ctx, subject)
}

// RunLogout ends every session of the access credential's subject.
func RunLogout(ctx context.Context, accessToken string, deps RevokeDeps) LogoutResult {
	claims, err := deps.DecodeAccess(accessToken)
	if err != nil {
		return LogoutResult{Err: err, Invalid: true}
	}
	n, err := RunRevokeAll(ctx, claims.Subject, deps)
	return LogoutResult{
		Subject: claims.Subject,
		Revoked: n,
		Err:     err,
	}
}

func RunHealth(ctx context.Context, deps RevokeDeps) (bool, time.Duration) {
	if deps.Store == nil {
		return false, 0
	}
	latency, err := deps.Store.Ping(ctx)
	return err == nil, latency
}
