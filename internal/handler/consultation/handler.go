package consultation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cabinet-api/internal/handler"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/service/consultation"
	"github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

type Handler struct {
	service consultation.ConsultationService
}

func NewHandler(service consultation.ConsultationService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts /consultations. Ownership past the role gate is enforced by the service.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *middleware.AuthMiddleware) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("", mw.Require(), h.List)
		consultations.POST("", mw.Require(model.RoleAdmin, model.RoleDoctor), h.Create)
		consultations.GET("/stats", mw.Require(model.RoleAdmin), h.Stats)
		consultations.GET("/:id", mw.Require(), h.Get)
		consultations.PUT("/:id", mw.Require(model.RoleAdmin, model.RoleDoctor), h.Update)
		consultations.DELETE("/:id", mw.Require(model.RoleAdmin), h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	status := model.ConsultationStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		httputil.RespondWithError(c, errors.Validation("status must be one of pending, completed, cancelled", nil))
		return
	}

	views, total, err := h.service.List(c.Request.Context(), handler.Principal(c), status, handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, views, page, total)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateConsultationRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.service.Create(c.Request.Context(), handler.Principal(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, view)
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), handler.Principal(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, view)
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateConsultationRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.service.Update(c.Request.Context(), handler.Principal(c), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, view)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), handler.Principal(c), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "consultation deleted")
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}
