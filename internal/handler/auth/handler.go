package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cabinet-api/internal/handler"
	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/service/auth"
	"github.com/jwalitptl/cabinet-api/internal/service/user"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

type Handler struct {
	authService auth.AuthService
	userService user.UserServicer
}

func NewHandler(authService auth.AuthService, userService user.UserServicer) *Handler {
	return &Handler{
		authService: authService,
		userService: userService,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw *middleware.AuthMiddleware) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.GET("/profile", mw.Require(), h.GetProfile)
		authGroup.PUT("/profile", mw.Require(), h.UpdateProfile)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	u, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	tokens, err := h.authService.IssueTokens(u)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, model.LoginResponse{TokenResponse: *tokens, User: u})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, resp)
}

// Refresh takes the refresh token from the body or, failing that, the Authorization header.
func (h *Handler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := handler.Bind(c, &req); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		header := c.GetHeader("Authorization")
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			token = strings.TrimSpace(header[7:])
		}
	}

	resp, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, resp)
}

func (h *Handler) GetProfile(c *gin.Context) {
	u, err := h.userService.Profile(c.Request.Context(), handler.Principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := handler.Bind(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	u, err := h.userService.UpdateProfile(c.Request.Context(), handler.Principal(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, u)
}
