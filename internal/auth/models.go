package auth

import (
	"github.com/golang-jwt/jwt/v4"
)

const tokenTypeAccess = "access"

// JWTClaims represents JWT token claims
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}
