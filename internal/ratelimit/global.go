package ratelimit

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewGlobal builds a coarse per-IP middleware applied to every API route.
// It allows rpm requests per client per minute, counted in Redis so all
// instances share the same budget.
func NewGlobal(rdb *redis.Client, rpm int) (func(http.Handler) http.Handler, error) {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit:global",
	})
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(rpm)})
	middleware := limiterstdlib.NewMiddleware(instance)
	return middleware.Handler, nil
}
