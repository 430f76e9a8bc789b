package middleware

import (
	"net/http"
	"strings"

	"busseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identity is the caller resolved from a bearer credential
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// TokenValidator resolves a bearer token into an Identity
type TokenValidator interface {
	ValidateIdentity(token string) (*Identity, error)
}

// BearerAuth rejects requests without a valid bearer credential
func BearerAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "Authorization header is required", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			response.Fail(c, http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil)
			return
		}

		identity, err := validator.ValidateIdentity(strings.TrimSpace(parts[1]))
		if err != nil || identity == nil {
			response.Fail(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		c.Set(identityKey, *identity)
		c.Next()
	}
}

// IdentityFrom returns the identity attached by BearerAuth
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := IdentityFrom(c)
		if !exists {
			response.Fail(c, http.StatusUnauthorized, "user role not found in context", nil)
			return
		}

		for _, role := range requiredRoles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		response.Fail(c, http.StatusForbidden, "Insufficient permissions", nil)
	}
}
