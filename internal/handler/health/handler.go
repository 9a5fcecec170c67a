package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/cabinet-api/internal/repository"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type Handler struct {
	stores map[string]repository.Pinger
}

// NewHandler checks each named store on every request.
func NewHandler(stores map[string]repository.Pinger) *Handler {
	return &Handler{stores: stores}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Check)
}

func (h *Handler) Check(c *gin.Context) {
	resp := Response{Status: statusUp, Checks: make(map[string]string, len(h.stores))}
	for name, store := range h.stores {
		if err := store.Ping(c.Request.Context()); err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Str("store", name).Msg("health check failed")
			resp.Checks[name] = statusDown
			resp.Status = statusDown
			continue
		}
		resp.Checks[name] = statusUp
	}

	status := http.StatusOK
	if resp.Status == statusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
