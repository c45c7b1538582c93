package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "servora:ratelimit"

// RedisRateLimiter keeps one sorted set of request timestamps per key and
// window, so every API instance shares the same budget. Denied attempts are
// recorded too.
type RedisRateLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisRateLimiter(client redis.Cmdable) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, windows []Window) (Decision, error) {
	now := l.now()
	decision := Decision{Allowed: true, Remaining: math.MaxInt64}

	for _, window := range windows {
		if window.Limit <= 0 || window.Duration <= 0 {
			continue
		}

		count, oldest, err := l.record(ctx, key, window.Duration, now)
		if err != nil {
			return Decision{}, err
		}

		remaining := int64(window.Limit) - count - 1
		if remaining < 0 {
			remaining = 0
		}
		if remaining < decision.Remaining {
			decision.Remaining = remaining
			decision.Limit = window.Limit
		}

		if count >= int64(window.Limit) {
			decision.Allowed = false
			retry := window.Duration
			if !oldest.IsZero() {
				retry = oldest.Add(window.Duration).Sub(now)
			}
			if retry < time.Second {
				retry = time.Second
			}
			if retry > decision.RetryAfter {
				decision.RetryAfter = retry
			}
		}
	}

	if decision.Remaining == math.MaxInt64 {
		decision.Remaining = 0
	}
	return decision, nil
}

// record trims the window, counts what is left and appends this attempt.
// It returns the count before the append and the oldest surviving entry.
func (l *RedisRateLimiter) record(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	redisKey := l.getKey(key, window)
	windowStart := now.Add(-window).UnixNano()
	nowNano := now.UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	first := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowNano), Member: fmt.Sprintf("%d-%s", nowNano, uuid.NewString())})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	var oldest time.Time
	if entries := first.Val(); len(entries) > 0 {
		oldest = time.Unix(0, int64(entries[0].Score))
	}
	return zcard.Val(), oldest, nil
}

// Reset clears every window of key.
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, key)

	iter := l.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) getKey(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, identifier, window.String())
}
