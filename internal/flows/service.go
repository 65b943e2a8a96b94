package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sessioncore/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.DecodeAccess != nil && s.deps.Rotate.Store != nil
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Rotate(ctx context.Context, refreshToken string) RotateResult {
	return RunRotate(ctx, refreshToken, s.deps.Rotate)
}

func (s Service) Validate(tokenStr string) ValidateResult {
	return RunValidate(tokenStr, s.deps.Validate)
}

func (s Service) RevokeAll(ctx context.Context, subject string) (int, error) {
	return RunRevokeAll(ctx, subject, s.deps.Revoke)
}

func (s Service) ListSessions(ctx context.Context, subject string) ([]session.Info, error) {
	return RunListSessions(ctx, subject, s.deps.Revoke)
}

func (s Service) Logout(ctx context.Context, accessToken string) LogoutResult {
	return RunLogout(ctx, accessToken, s.deps.Revoke)
}

func (s Service) Health(ctx context.Context) (bool, time.Duration) {
	return RunHealth(ctx, s.deps.Revoke)
}
