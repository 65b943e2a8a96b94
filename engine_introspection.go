package sessioncore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sessioncore/session"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ListActiveSessions returns the live token families of subject, newest
// first. Records that vanish or fail to decode mid-listing are skipped.
func (e *Engine) ListActiveSessions(ctx context.Context, subject string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if subject == "" {
		return nil, ErrUserNotFound
	}

	infos, err := e.flow.ListSessions(ctx, subject)
	if err != nil {
		if errors.Is(err, session.ErrInvalidKey) {
			return nil, fmt.Errorf("%w: %v", ErrUserNotFound, err)
		}
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]SessionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, toSessionInfo(info))
	}
	return out, nil
}

// ActiveSessionCount returns the number of live token families of subject.
func (e *Engine) ActiveSessionCount(ctx context.Context, subject string) (int, error) {
	sessions, err := e.ListActiveSessions(ctx, subject)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// Health pings the session store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if !e.ready() {
		return HealthStatus{}
	}

	ok, latency := e.flow.Health(ctx)
	return HealthStatus{
		RedisAvailable: ok,
		RedisLatency:   latency,
	}
}

// GetLoginAttempts returns the failed-login count currently recorded for email.
func (e *Engine) GetLoginAttempts(ctx context.Context, email string) (int, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if email == "" {
		return 0, nil
	}

	return e.rateLimiter.GetLoginAttempts(ctx, email)
}

func toSessionInfo(info session.Info) SessionInfo {
	return SessionInfo{
		Family:    info.Family,
		CreatedAt: info.CreatedAt,
		Used:      info.Used,
		UsedAt:    info.UsedAt,
	}
}
