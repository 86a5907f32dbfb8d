package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/models"
)

// AuthService issues and validates identity tokens
type AuthService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates a new auth service for the given signing secret
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken generates a new JWT token for a user
func (s *AuthService) GenerateToken(userID string, role models.Role) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret not configured")
	}
	if userID == "" {
		return "", time.Time{}, ValidationError("user id is required")
	}
	if !role.Valid() {
		return "", time.Time{}, ValidationError("invalid role %q", role)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := dto.TokenClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the caller identity
func (s *AuthService) ValidateToken(tokenString string) (models.Identity, error) {
	if len(s.secret) == 0 {
		return models.Identity{}, errors.New("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &dto.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return models.Identity{}, err
	}
	if !token.Valid {
		return models.Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*dto.TokenClaims)
	if !ok {
		return models.Identity{}, errors.New("invalid token claims")
	}
	role := models.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return models.Identity{}, errors.New("token does not carry a valid identity")
	}
	return models.Identity{UserID: claims.UserID, Role: role}, nil
}
