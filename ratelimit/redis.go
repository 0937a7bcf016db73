package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, then either records the
// request or reports how long until the oldest entry expires. It runs
// atomically inside Redis, so concurrent instances never over-admit.
//
// KEYS[1] bucket, ARGV: now_ms, window_ms, limit, member.
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local retry = window
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, 0, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, limit - count - 1, 0}
`)

// RedisLimiter shares sliding-window counters between instances.
type RedisLimiter struct {
	client redis.Scripter
	now    func() time.Time
}

func NewRedisLimiter(client redis.Scripter) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, policy Policy, key string) (Decision, error) {
	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := slidingWindow.Run(ctx, l.client, []string{bucketKey(policy, key)},
		now, policy.Window.Milliseconds(), policy.Limit, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	d := Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}
