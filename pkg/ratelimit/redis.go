package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter counts requests in fixed windows shared by every process using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

func NewRedisLimiter(url string, cfg Config) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisLimiter{client: redis.NewClient(opts), cfg: cfg, now: time.Now}, nil
}

// windowKey names the counter of the window containing now, and returns the window end.
func (r *RedisLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	start := now.Truncate(r.cfg.Period)
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, start.Unix()), start.Add(r.cfg.Period)
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := r.now()
	k, end := r.windowKey(key, now)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, r.cfg.Period)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	res := Result{Limit: r.cfg.Requests, Remaining: r.cfg.Requests - count}
	if count > r.cfg.Requests {
		res.Remaining = 0
		res.RetryAfter = end.Sub(now)
		return res, nil
	}
	res.Allowed = true
	return res, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
