package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cabinet-api/internal/handler"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/service/consultation"
	"github.com/jwalitptl/cabinet-api/internal/service/doctor"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

// Handler serves the doctor's own profile and patient list.
type Handler struct {
	doctors       doctor.DoctorService
	consultations consultation.ConsultationService
}

func NewHandler(doctors doctor.DoctorService, consultations consultation.ConsultationService) *Handler {
	return &Handler{
		doctors:       doctors,
		consultations: consultations,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *middleware.AuthMiddleware) {
	me := r.Group("/doctors/me", mw.Require(model.RoleDoctor))
	{
		me.GET("", h.Profile)
		me.PUT("", h.Update)
		me.GET("/patients", h.Patients)
		me.GET("/patients/:patientId/history", h.History)
		me.GET("/schedule", h.Schedule)
	}
}

func (h *Handler) Profile(c *gin.Context) {
	principal := handler.Principal(c)
	d, err := h.doctors.GetByUser(c.Request.Context(), principal.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateDoctorRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	d, err := h.doctors.UpdateOwn(c.Request.Context(), handler.Principal(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) Patients(c *gin.Context) {
	patients, err := h.doctors.OwnPatients(c.Request.Context(), handler.Principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}

func (h *Handler) History(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	views, total, err := h.consultations.History(c.Request.Context(), handler.Principal(c), c.Param("patientId"), handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, views, page, total)
}

func (h *Handler) Schedule(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	views, total, err := h.consultations.Schedule(c.Request.Context(), handler.Principal(c), handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, views, page, total)
}
