package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/cabinet-api/internal/handler/health"
	"github.com/jwalitptl/cabinet-api/internal/handler/prometheus"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
	"github.com/jwalitptl/cabinet-api/pkg/ratelimit"
)

// Handler is an API surface mounted under /api.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type Config struct {
	Mode           string
	AllowedOrigins []string
	MaxBodyBytes   int64
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Limiter
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	config Config,
	handlers ...Handler,
) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	binding.EnableDecoderDisallowUnknownFields = true
	if err := middleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	maxBody := config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
		middleware.SizeLimit(maxBody),
		middleware.CORS(config.AllowedOrigins),
	)
	if config.Limiter != nil {
		engine.Use(middleware.NewRateLimiter(config.Limiter).RateLimit())
	}

	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		metrics:  prometheus.New(),
		handlers: handlers,
	}
	r.setup()
	return r, nil
}

func (r *Router) setup() {
	r.engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithError(c, errors.NotFound("route", nil))
	})
	r.engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, httputil.ErrorBody{Error: "method not allowed"})
	})

	r.metrics.RegisterRoutes(r.engine)

	api := r.engine.Group("/api")
	r.health.RegisterRoutes(api)
	for _, h := range r.handlers {
		h.RegisterRoutes(api, r.auth)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
