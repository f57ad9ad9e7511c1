package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const quotaPeriodLayout = "2006-01"

// QuotaResult is the outcome of a monthly quota reservation.
type QuotaResult struct {
	Allowed bool
	// Used counts this month's requests, including the one just reserved.
	Used    int64
	Limit   int64
	ResetAt time.Time
	// Period is the UTC month ("2006-01") the reservation was charged to.
	Period string
}

// QuotaTracker counts requests per API key per calendar month (UTC) in Redis.
type QuotaTracker struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// NewQuotaTracker creates a quota tracker. If rdb is nil, all checks pass.
func NewQuotaTracker(rdb redis.UniversalClient) *QuotaTracker {
	return &QuotaTracker{rdb: rdb, now: time.Now}
}

func quotaKey(keyID, period string) string {
	return "nowgo:quota:monthly:" + keyID + ":" + period
}

func monthlyQuotaKey(keyID string, now time.Time) string {
	return quotaKey(keyID, now.UTC().Format(quotaPeriodLayout))
}

// monthEnd returns the first instant of the month after now, in UTC.
func monthEnd(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// reserveScript takes one slot if the counter is below the limit.
// KEYS[1] = monthly counter
// ARGV[1] = limit
// ARGV[2] = expiry (unix seconds)
// Returns: [used, 1=reserved/0=denied]
var reserveScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used >= tonumber(ARGV[1]) then
    return {used, 0}
end
used = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return {used, 1}
`)

// releaseScript gives back a slot without going below zero.
var releaseScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used > 0 then
    return redis.call('DECR', KEYS[1])
end
return 0
`)

// Reserve atomically charges one request to keyID's monthly counter unless
// the key already used limit requests. Redis errors are returned alongside
// an allowing result and nothing is charged.
func (q *QuotaTracker) Reserve(ctx context.Context, keyID string, limit int64) (QuotaResult, error) {
	now := q.now()
	res := QuotaResult{
		Allowed: true,
		Limit:   limit,
		ResetAt: monthEnd(now),
		Period:  now.UTC().Format(quotaPeriodLayout),
	}
	if q.rdb == nil {
		return res, nil
	}

	// Keep the counter one day past month end so late reads still see it.
	expireAt := res.ResetAt.Add(24 * time.Hour).Unix()
	reply, err := reserveScript.Run(ctx, q.rdb, []string{quotaKey(keyID, res.Period)}, limit, expireAt).Int64Slice()
	if err != nil {
		return res, fmt.Errorf("reserve quota: %w", err)
	}
	if len(reply) < 2 {
		return res, fmt.Errorf("reserve quota: unexpected reply %v", reply)
	}

	res.Used = reply[0]
	res.Allowed = reply[1] == 1
	return res, nil
}

// Release returns a slot taken by Reserve in the given period.
func (q *QuotaTracker) Release(ctx context.Context, keyID, period string) error {
	if q.rdb == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, q.rdb, []string{quotaKey(keyID, period)}).Err(); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// Used returns the number of requests keyID has made this month.
func (q *QuotaTracker) Used(ctx context.Context, keyID string) (int64, error) {
	if q.rdb == nil {
		return 0, nil
	}
	used, err := q.rdb.Get(ctx, monthlyQuotaKey(keyID, q.now())).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return used, nil
}
