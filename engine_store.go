package sessioncore

import (
	"context"
	"time"

	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/session"
)

// boundedStore applies Session.OperationTimeout to each store round-trip so
// a stalled Redis surfaces as unavailability instead of a hung request.
type boundedStore struct {
	store   *session.Store
	timeout time.Duration
}

func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (s boundedStore) Create(ctx context.Context, subject, family, token string) (*session.Record, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.Create(ctx, subject, family, token)
}

func (s boundedStore) Consume(ctx context.Context, subject, family, token string) (*session.Record, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.Consume(ctx, subject, family, token)
}

func (s boundedStore) IsConsumed(ctx context.Context, subject, family, token string) (bool, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.IsConsumed(ctx, subject, family, token)
}

func (s boundedStore) Advance(ctx context.Context, subject, family, consumed, next string) (*session.Record, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.Advance(ctx, subject, family, consumed, next)
}

func (s boundedStore) RevokeFamily(ctx context.Context, subject, family string) (bool, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.RevokeFamily(ctx, subject, family)
}

// RevokeAll walks the whole subject keyspace, so it gets a wider budget.
func (s boundedStore) RevokeAll(ctx context.Context, subject string) (int, error) {
	ctx, cancel := bound(ctx, 4*s.timeout)
	defer cancel()
	return s.store.RevokeAll(ctx, subject)
}

func (s boundedStore) List(ctx context.Context, subject string) ([]session.Info, error) {
	ctx, cancel := bound(ctx, 4*s.timeout)
	defer cancel()
	return s.store.List(ctx, subject)
}

func (s boundedStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := bound(ctx, s.timeout)
	defer cancel()
	return s.store.Ping(ctx)
}

type boundedLimiter struct {
	limiter *rate.Limiter
	timeout time.Duration
}

func (l boundedLimiter) CheckLogin(ctx context.Context, email, ip string) error {
	ctx, cancel := bound(ctx, l.timeout)
	defer cancel()
	return l.limiter.CheckLogin(ctx, email, ip)
}

func (l boundedLimiter) IncrementLogin(ctx context.Context, email, ip string) error {
	ctx, cancel := bound(ctx, l.timeout)
	defer cancel()
	return l.limiter.IncrementLogin(ctx, email, ip)
}

func (l boundedLimiter) ResetLogin(ctx context.Context, email, ip string) error {
	ctx, cancel := bound(ctx, l.timeout)
	defer cancel()
	return l.limiter.ResetLogin(ctx, email, ip)
}

func (l boundedLimiter) CheckRefresh(ctx context.Context, family string) error {
	ctx, cancel := bound(ctx, l.timeout)
	defer cancel()
	return l.limiter.CheckRefresh(ctx, family)
}
