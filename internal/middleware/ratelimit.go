package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/cabinet-api/pkg/httputil"
	"github.com/jwalitptl/cabinet-api/pkg/metrics"
	"github.com/jwalitptl/cabinet-api/pkg/ratelimit"
)

type RateLimiter struct {
	limiter ratelimit.Limiter
}

func NewRateLimiter(limiter ratelimit.Limiter) *RateLimiter {
	return &RateLimiter{limiter: limiter}
}

// RateLimit limits requests per client IP. A failing backend lets the request through.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := rl.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorBody{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
