package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cabinet-api/internal/handler"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/service/doctor"
	"github.com/jwalitptl/cabinet-api/internal/service/patient"
	"github.com/jwalitptl/cabinet-api/internal/service/user"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

// Handler is the administrator surface over patients, doctors and users.
type Handler struct {
	patients patient.PatientService
	doctors  doctor.DoctorService
	users    user.UserServicer
}

func NewHandler(patients patient.PatientService, doctors doctor.DoctorService, users user.UserServicer) *Handler {
	return &Handler{
		patients: patients,
		doctors:  doctors,
		users:    users,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *middleware.AuthMiddleware) {
	admin := r.Group("/admin", mw.Require(model.RoleAdmin))
	{
		admin.GET("/stats", h.Stats)

		admin.GET("/patients", h.ListPatients)
		admin.POST("/patients", h.CreatePatient)
		admin.GET("/patients/:id", h.GetPatient)
		admin.PUT("/patients/:id", h.UpdatePatient)
		admin.DELETE("/patients/:id", h.DeletePatient)

		admin.GET("/doctors", h.ListDoctors)
		admin.POST("/doctors", h.CreateDoctor)
		admin.GET("/doctors/:id", h.GetDoctor)
		admin.PUT("/doctors/:id", h.UpdateDoctor)
		admin.DELETE("/doctors/:id", h.DeleteDoctor)
		admin.GET("/doctors/:id/patients", h.DoctorPatients)

		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.GET("/users/search", h.SearchUsers)
		admin.GET("/users/:id", h.GetUser)
		admin.PUT("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
	}
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}

func (h *Handler) ListPatients(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	patients, total, err := h.patients.List(c.Request.Context(), handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, patients, page, total)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	p, err := h.patients.Create(c.Request.Context(), req.Patient())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, p)
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var req model.UpdatePatientRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	p, err := h.patients.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "patient deleted")
}

func (h *Handler) ListDoctors(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	doctors, total, err := h.doctors.List(c.Request.Context(), handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, doctors, page, total)
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	d, err := h.doctors.Create(c.Request.Context(), req.Doctor())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	d, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	var req model.UpdateDoctorRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	d, err := h.doctors.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	if err := h.doctors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "doctor deleted")
}

func (h *Handler) DoctorPatients(c *gin.Context) {
	patients, err := h.doctors.ConsultedPatients(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}

func (h *Handler) ListUsers(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	filter := model.UserFilter{Role: model.Role(c.Query("role"))}
	users, total, err := h.users.List(c.Request.Context(), filter, handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, users, page, total)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	users, total, err := h.users.Search(c.Request.Context(), c.Query("query"), handler.ListOptions(page))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, users, page, total)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.RegisterRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	u, err := h.users.Provision(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, u)
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "user deleted")
}
