package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// hitLua increments a window counter and starts the window on the first hit.
// A key left without a TTL by an older writer gets one on its next hit.
var hitLua = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Limiter enforces per-email and per-IP login budgets and a per-family
// refresh budget using Redis counters.
type Limiter struct {
	redis redis.UniversalClient
	cfg   Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, cfg: cfg}
}

func (l *Limiter) loginEnabled() bool {
	return l.cfg.MaxLoginAttempts > 0
}

func (l *Limiter) loginKeys(email, ip string) []string {
	keys := []string{loginUserKey(email)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

// CheckLogin fails with ErrRateLimited once the email or IP counter has
// reached MaxLoginAttempts. A zero MaxLoginAttempts disables the check.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if !l.loginEnabled() {
		return nil
	}
	vals, err := l.redis.MGet(ctx, l.loginKeys(email, ip)...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	for _, v := range vals {
		if n, ok := counterValue(v); ok && n >= int64(l.cfg.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt for the email and IP.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	if !l.loginEnabled() {
		return nil
	}
	limited := false
	for _, key := range l.loginKeys(email, ip) {
		n, err := l.hit(ctx, key, l.cfg.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if n > int64(l.cfg.MaxLoginAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if !l.loginEnabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.loginKeys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts one refresh attempt for family and fails once the
// window budget is exceeded.
func (l *Limiter) CheckRefresh(ctx context.Context, family string) error {
	if !l.cfg.EnableRefreshThrottle {
		return nil
	}
	n, err := l.hit(ctx, refreshKey(family), l.cfg.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if n > int64(l.cfg.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

// GetLoginAttempts returns the current attempt counter for an email. A
// missing key reads as zero, so the answer does not reveal whether the
// account exists.
func (l *Limiter) GetLoginAttempts(ctx context.Context, email string) (int, error) {
	n, err := l.redis.Get(ctx, loginUserKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(max(n, 0)), nil
}

func (l *Limiter) hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := hitLua.Run(ctx, l.redis, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// counterValue converts an MGET element; nil and non-numeric values are absent.
func counterValue(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
