// Package auth issues and validates the platform's authentication
// artifacts: JWT access tokens, bcrypt password hashes and short-lived
// numeric verification codes.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// JWTClaims are the claims carried by an access token.
type JWTClaims struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HMAC JWTs.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenService creates a token service from configuration.
func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.SecretKey),
		ttl:    time.Duration(cfg.AccessTokenTTL) * time.Second,
		issuer: cfg.Issuer,
	}
}

var _ interfaces.TokenService = (*TokenService)(nil)

// IssueToken signs a new access token for a user identity.
func (s *TokenService) IssueToken(userID string, userType string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:   userID,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token string and returns its claims.
func (s *TokenService) VerifyToken(tokenString string) (*interfaces.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, types.NewExternalError(types.CodeTokenInvalid, "failed to parse token", err)
	}
	if !token.Valid {
		return nil, types.NewExternalError(types.CodeTokenInvalid, "invalid token", nil)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, types.NewExternalError(types.CodeTokenInvalid, "invalid token claims", nil)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, types.NewExternalError(types.CodeTokenInvalid, "token expired", nil)
	}

	return &interfaces.TokenClaims{
		UserID:   claims.UserID,
		UserType: claims.UserType,
	}, nil
}

// HashPassword produces a bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against its stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
