package service

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// TokenService verifies access tokens issued by the identity provider.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs a verifier for HS256 tokens signed with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no user")
	}
	return claims, nil
}
