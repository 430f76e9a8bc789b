package auth

import (
	"busseat/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// Router handles auth-related routes
type Router struct {
	controller *Controller
	validator  middleware.TokenValidator
}

// NewRouter creates a new auth router
func NewRouter(controller *Controller, validator middleware.TokenValidator) *Router {
	return &Router{
		controller: controller,
		validator:  validator,
	}
}

// SetupRoutes registers all auth routes
func (authRouter *Router) SetupRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authRouter.controller.Register)
		auth.POST("/login", authRouter.controller.Login)

		protected := auth.Group("")
		protected.Use(middleware.BearerAuth(authRouter.validator))
		{
			protected.GET("/me", authRouter.controller.GetMe)
		}
	}
}
