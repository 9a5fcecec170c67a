package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per key. Idle buckets expire after two periods.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	cfg     Config
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	burst := cfg.Burst
	if burst < 1 {
		burst = cfg.Requests
	}
	return &MemoryLimiter{
		buckets: cache.New(2*cfg.Period, cfg.Period),
		limit:   rate.Limit(float64(cfg.Requests) / cfg.Period.Seconds()),
		burst:   burst,
		cfg:     cfg,
	}
}

func (m *MemoryLimiter) bucket(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.buckets.Get(key); ok {
		m.buckets.Set(key, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(m.limit, m.burst)
	m.buckets.Set(key, l, cache.DefaultExpiration)
	return l
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l := m.bucket(key)
	now := time.Now()
	res := Result{Limit: m.burst}

	r := l.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res, nil
	}
	res.Allowed = true
	res.Remaining = int(math.Max(0, math.Floor(l.TokensAt(now))))
	return res, nil
}

func (m *MemoryLimiter) Close() error {
	m.buckets.Flush()
	return nil
}
