package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/service/auth"
	"github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

const ContextPrincipal = "principal"

// Authorizer is the part of the auth service the middleware needs.
type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...model.Role) (*model.Principal, error)
}

var _ Authorizer = (auth.AuthService)(nil)

type AuthMiddleware struct {
	authorizer Authorizer
}

func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// Require authenticates the bearer token and admits callers holding one of roles.
// With no roles any authenticated caller is admitted.
func (m *AuthMiddleware) Require(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		principal, err := m.authorizer.Authorize(c.Request.Context(), token, roles...)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextPrincipal, principal)
		logger := zerolog.Ctx(c.Request.Context()).With().
			Str("user_id", principal.UserID).
			Str("role", string(principal.Role)).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.MissingToken()
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.InvalidToken(nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

// GetPrincipal returns the caller set by Require, or nil on unauthenticated routes.
func GetPrincipal(c *gin.Context) *model.Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	principal, _ := v.(*model.Principal)
	return principal
}
