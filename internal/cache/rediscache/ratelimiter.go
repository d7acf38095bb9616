package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Fixed window: TTL ставится только на первом запросе окна,
// чтобы последующие попытки не продлевали его.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter counts attempts per key in Redis.
type RateLimiter struct {
	c redis.Scripter
}

func NewRateLimiter(addr string) *RateLimiter {
	return NewRateLimiterWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRateLimiterWithClient(c redis.Scripter) *RateLimiter {
	return &RateLimiter{c: c}
}

// Allow reports whether the attempt under key fits into limit for the
// current window, along with the attempt count so far.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		return false, 0, errors.New("redis ratelimit: window must be positive")
	}
	n, err := fixedWindow.Run(ctx, rl.c, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, errors.Wrapf(err, "redis ratelimit %s", key)
	}
	return n <= limit, n, nil
}
