package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter performs sliding-window rate limiting backed by Redis sorted sets.
type Limiter struct {
	rdb       redis.UniversalClient
	namespace string
	now       func() time.Time
}

// NewLimiter creates a new rate limiter. If rdb is nil, all checks pass (fail open).
func NewLimiter(rdb redis.UniversalClient) *Limiter {
	return &Limiter{rdb: rdb, namespace: "nowgo:rl:", now: time.Now}
}

// slidingWindowScript trims expired entries, admits the request if there is room,
// and reports the oldest entry still in the window.
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro)
// ARGV[3] = limit
// ARGV[4] = TTL seconds for the key
// Returns: [count, 1=allowed/0=denied, oldest score or 0]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
local allowed = 0

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    count = count + 1
    allowed = 1
end
redis.call('EXPIRE', key, ttl)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest_score = 0
if oldest[2] then
    oldest_score = tonumber(oldest[2])
end
return {count, allowed, oldest_score}
`)

// Check records one request against key and reports whether it fits within
// limit requests per window. Redis errors are returned alongside an allowing
// result so callers can log them and still serve the request.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error) {
	now := l.now()
	if l.rdb == nil {
		return LimitResult{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	windowStart := now.Add(-window).UnixMicro()
	ttlSecs := int64(window.Seconds()) + 1

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{l.namespace + key},
		windowStart, now.UnixMicro(), limit, ttlSecs,
	).Int64Slice()
	if err != nil {
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(result) < 3 {
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, fmt.Errorf("rate limit script: unexpected reply %v", result)
	}

	return windowResult(now, window, limit, result[0], result[1] == 1, result[2]), nil
}

// windowResult derives the client-facing numbers from the script reply.
// The window frees up a slot when its oldest entry expires.
func windowResult(now time.Time, window time.Duration, limit, count int64, allowed bool, oldestMicro int64) LimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	if oldestMicro > 0 {
		resetAt = time.UnixMicro(oldestMicro).Add(window)
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAt.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
	}

	return LimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}
}
