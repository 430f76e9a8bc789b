package seats

import (
	"busseat/internal/shared/middleware"
	"busseat/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupSeatRoutes registers the seat API. claimLimits run after
// authentication on POST /bookings.
func SetupSeatRoutes(router *gin.RouterGroup, controller Controller, validator middleware.TokenValidator, claimLimits ...gin.HandlerFunc) {
	router.GET("/seats/:runId", controller.GetSeats) // GET /api/v1/seats/:runId - seat vector

	bookings := router.Group("/bookings")
	bookings.Use(middleware.BearerAuth(validator), middleware.RequireRoles(string(users.RoleRider), string(users.RoleOperator)))
	bookings.Use(claimLimits...)
	{
		bookings.POST("", controller.CreateBooking) // POST /api/v1/bookings - claim a seat
	}

	runs := router.Group("/runs")
	runs.Use(middleware.BearerAuth(validator), middleware.RequireRoles(string(users.RoleOperator)))
	{
		runs.GET("/:runId/bookings/count", controller.GetOccupancy) // GET /api/v1/runs/:runId/bookings/count
	}
}
