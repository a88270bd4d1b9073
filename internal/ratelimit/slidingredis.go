package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Result reports the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter implements a sliding window rate limiter backed by Redis sorted sets.
// Sensitive endpoints (checkout, payment, donation submit) use it on top of
// the coarse per-IP limit applied at the router.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records an event under key and reports whether it stays within max
// events per window.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Result, error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: max, Reset: time.Now().Add(window)}, nil
	}

	now := time.Now()
	reset := now.Add(window)
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	member := key + ":" + uuid.NewString()
	redisKey := l.Prefix + key

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Reset: reset}, err
	}

	current := int(countCmd.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: current <= max, Remaining: remaining, Reset: reset}, nil
}
