package schedules

import (
	"busseat/internal/shared/middleware"
	"busseat/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupScheduleRoutes(router *gin.RouterGroup, controller Controller, validator middleware.TokenValidator) {
	// Public routes - riders browse runs before picking a seat
	public := router.Group("/schedules")
	{
		public.GET("", controller.ListSchedules)      // GET /api/v1/schedules
		public.GET("/:runId", controller.GetSchedule) // GET /api/v1/schedules/:runId
	}

	operator := router.Group("/operator")
	operator.Use(middleware.BearerAuth(validator), middleware.RequireRoles(string(users.RoleOperator)))
	{
		operator.GET("/buses", controller.ListBuses)           // GET /api/v1/operator/buses
		operator.POST("/buses", controller.CreateBus)          // POST /api/v1/operator/buses
		operator.POST("/schedules", controller.CreateSchedule) // POST /api/v1/operator/schedules
	}
}
