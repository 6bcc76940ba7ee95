package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var loginRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// LoginRateLimiter implements distributed fixed-window rate limiting for
// authentication attempts using Redis. A nil receiver or missing client
// disables limiting entirely, so the service runs without Redis.
type LoginRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewLoginRateLimiter creates a limiter allowing limit attempts per window
// for each subject.
func NewLoginRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *LoginRateLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "backoffice:rate_limit"
	}
	return &LoginRateLimiter{client: client, prefix: trimmed, limit: limit, window: window}
}

// Allow consumes one attempt for the subject. It returns false plus a
// retry-after hint in seconds once the window budget is spent. Redis
// errors fail open: an unreachable limiter must not lock out logins.
func (l *LoginRateLimiter) Allow(ctx context.Context, subject string) (bool, int, error) {
	if l == nil || l.client == nil || l.limit <= 0 || l.window <= 0 {
		return true, 0, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return true, 0, nil
	}

	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:login:%s", l.prefix, subject)
	raw, err := loginRateLimitScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return true, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return true, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return true, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return true, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	if count > int64(l.limit) {
		retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}
