package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/cabinet-api/internal/model"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims carry the user id as subject and the role as a private claim.
type Claims struct {
	Role model.Role      `json:"role"`
	Type model.TokenType `json:"type"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateAccessToken(userID string, role model.Role) (string, error)
	GenerateRefreshToken(userID string, role model.Role) (string, error)
	ValidateToken(token string, expected model.TokenType) (*Claims, error)
	AccessTTL() time.Duration
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type jwtService struct {
	cfg Config
	now func() time.Time
}

func NewJWTService(cfg Config) JWTService {
	return &jwtService{cfg: cfg, now: time.Now}
}

func (s *jwtService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

func (s *jwtService) GenerateAccessToken(userID string, role model.Role) (string, error) {
	return s.sign(userID, role, model.TokenTypeAccess, s.cfg.AccessTTL)
}

func (s *jwtService) GenerateRefreshToken(userID string, role model.Role) (string, error) {
	return s.sign(userID, role, model.TokenTypeRefresh, s.cfg.RefreshTTL)
}

func (s *jwtService) sign(userID string, role model.Role, typ model.TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken reports ErrTokenExpired for any token whose exp lies in the past,
// before the signature is looked at.
func (s *jwtService) ValidateToken(tokenString string, expected model.TokenType) (*Claims, error) {
	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &unverified); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if exp := unverified.ExpiresAt; exp != nil && !s.now().Before(exp.Time) {
		return nil, ErrTokenExpired
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case !token.Valid:
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing subject or role", ErrTokenInvalid)
	}
	if expected != "" && claims.Type != expected {
		return nil, ErrWrongTokenType
	}
	return &claims, nil
}
