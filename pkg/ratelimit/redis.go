package ratelimit

import (
	"context"
	"fmt"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Lua script for an atomic fixed window that stops counting at the limit
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
// ARGV[2] = max admits per window
// Returns: [count, ttl_ms, allowed]
const fixedWindowLuaScript = `
local limit = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= limit then
    return {current, redis.call('PTTL', KEYS[1]), 0}
end
current = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if current == 1 or ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {current, ttl, 1}
`

var fixedWindowScript = goredis.NewScript(fixedWindowLuaScript)

// RedisLimiter shares fixed-window counters between instances through Redis.
// When Redis fails it answers from the in-memory fallback.
type RedisLimiter struct {
	client   *goredis.Client
	policy   Policy
	prefix   string
	fallback *FixedWindow
}

// NewRedisLimiter creates a limiter storing counters under prefix+key.
// A nil client makes every call use the fallback.
func NewRedisLimiter(client *goredis.Client, policy Policy, prefix string, fallback *FixedWindow) *RedisLimiter {
	if fallback == nil {
		fallback = NewFixedWindow(policy)
	}
	return &RedisLimiter{
		client:   client,
		policy:   policy,
		prefix:   prefix,
		fallback: fallback,
	}
}

// Allow admits or denies one call for key.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (domain.RateDecision, error) {
	if r.client == nil {
		return r.fallback.Allow(ctx, key)
	}

	decision, err := r.allowRedis(ctx, r.prefix+key)
	if err != nil {
		// Fail open to the process-local counter
		logger.Log.Warn("rate limit redis error, using in-memory store", "error", err)
		return r.fallback.Allow(ctx, key)
	}
	return decision, nil
}

func (r *RedisLimiter) allowRedis(ctx context.Context, key string) (domain.RateDecision, error) {
	windowMs := r.policy.Window.Milliseconds()
	result, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs, r.policy.Limit).Result()
	if err != nil {
		return domain.RateDecision{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 3 {
		return domain.RateDecision{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)
	allowed, _ := arr[2].(int64)

	return decisionFromCounter(r.policy, int(count), time.Duration(ttl)*time.Millisecond, allowed == 1, time.Now()), nil
}

func decisionFromCounter(policy Policy, count int, ttl time.Duration, allowed bool, now time.Time) domain.RateDecision {
	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return domain.RateDecision{
		Allowed:   allowed,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}
}
