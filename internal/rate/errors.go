package rate

import "errors"

// ErrRateLimited is returned when a counter is above its window budget.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable wraps counter read and write failures.
var ErrRedisUnavailable = errors.New("redis unavailable")
