package auth

import (
	"busseat/internal/shared/middleware"
)

// ValidatorAdapter exposes the auth service as a middleware.TokenValidator
// without making the middleware package depend on auth.
type ValidatorAdapter struct {
	service Service
}

func NewValidatorAdapter(service Service) *ValidatorAdapter {
	return &ValidatorAdapter{service: service}
}

func (a *ValidatorAdapter) ValidateIdentity(token string) (*middleware.Identity, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
