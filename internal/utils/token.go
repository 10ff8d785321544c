package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
)

// AccessClaims are the claims this service reads from an access token. Token
// issuance belongs to the auth service; we only verify.
type AccessClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates an HS256 access token and returns its claims.
// Any parse or signature failure maps to errs.ErrUnauthenticated.
func ParseAccessToken(tokenStr, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("parse access token: %w", errs.ErrUnauthenticated)
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("access token missing user id: %w", errs.ErrUnauthenticated)
	}
	return claims, nil
}
