package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/pkg/auth"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/security"
)

const tokenTypeBearer = "Bearer"

type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Authorize(ctx context.Context, token string, roles ...model.Role) (*model.Principal, error)
	IssueTokens(user *model.User) (*model.TokenResponse, error)
}

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Login answers InvalidCredentials for an unknown email and a wrong password alike.
func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrMismatch) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("stored password hash unreadable")
		}
		return nil, apperrors.InvalidCredentials()
	}

	now := s.now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID.Hex()).Str("role", string(user.Role)).Msg("user logged in")
	return &model.LoginResponse{TokenResponse: *tokens, User: user}, nil
}

// Refresh issues a new access token from the refresh token's claims alone.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.MissingToken()
	}
	claims, err := s.jwtSvc.ValidateToken(refreshToken, model.TokenTypeRefresh)
	if err != nil {
		return nil, tokenError(err)
	}

	access, err := s.jwtSvc.GenerateAccessToken(claims.Subject, claims.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.jwtSvc.AccessTTL().Seconds()),
	}, nil
}

// Authorize validates an access token and checks its role against roles.
// With no roles any authenticated caller passes.
func (s *Service) Authorize(ctx context.Context, token string, roles ...model.Role) (*model.Principal, error) {
	if token == "" {
		return nil, apperrors.MissingToken()
	}
	claims, err := s.jwtSvc.ValidateToken(token, model.TokenTypeAccess)
	if err != nil {
		return nil, tokenError(err)
	}

	principal := &model.Principal{UserID: claims.Subject, Role: claims.Role}
	if len(roles) == 0 {
		return principal, nil
	}
	for _, r := range roles {
		if principal.Role == r {
			return principal, nil
		}
	}
	return nil, apperrors.Forbidden("insufficient role for this operation")
}

func (s *Service) IssueTokens(user *model.User) (*model.TokenResponse, error) {
	id := user.ID.Hex()
	access, err := s.jwtSvc.GenerateAccessToken(id, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(id, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.jwtSvc.AccessTTL().Seconds()),
	}, nil
}

func tokenError(err error) error {
	if errors.Is(err, auth.ErrTokenExpired) {
		return apperrors.ExpiredToken(err)
	}
	return apperrors.InvalidToken(err)
}
