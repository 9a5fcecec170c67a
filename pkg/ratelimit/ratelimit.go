// Package ratelimit provides per-key request limiting backed by process memory or Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Requests int
	Period   time.Duration
	Burst    int
}

// Result describes one admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	Close() error
}

// New picks the backend from the storage URL: memory:// or redis://.
func New(storageURL string, cfg Config) (Limiter, error) {
	switch {
	case storageURL == "" || strings.HasPrefix(storageURL, "memory://"):
		return NewMemoryLimiter(cfg), nil
	case strings.HasPrefix(storageURL, "redis://"), strings.HasPrefix(storageURL, "rediss://"):
		return NewRedisLimiter(storageURL, cfg)
	default:
		return nil, fmt.Errorf("unsupported rate limit storage %q", storageURL)
	}
}
