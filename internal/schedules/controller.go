package schedules

import (
	"errors"
	"net/http"

	"busseat/internal/shared/middleware"
	"busseat/internal/shared/utils/response"
	"busseat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	CreateBus(c *gin.Context)
	ListBuses(c *gin.Context)
	CreateSchedule(c *gin.Context)
	ListSchedules(c *gin.Context)
	GetSchedule(c *gin.Context)
}

type controller struct {
	service Service
	logger  *logger.Logger
}

func NewController(service Service) Controller {
	return &controller{service: service, logger: logger.GetDefault()}
}

func (ctrl *controller) CreateBus(c *gin.Context) {
	var req CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	identity, exists := middleware.IdentityFrom(c)
	if !exists {
		response.Fail(c, http.StatusUnauthorized, "Operator not authenticated", nil)
		return
	}

	operatorID, err := uuid.Parse(identity.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Invalid operator ID format", nil)
		return
	}

	bus, err := ctrl.service.CreateBus(c.Request.Context(), operatorID, req)
	if err != nil {
		ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, "Failed to create bus", nil)
		return
	}

	response.Success(c, http.StatusCreated, "Bus created successfully", bus)
}

func (ctrl *controller) ListBuses(c *gin.Context) {
	buses, err := ctrl.service.ListBuses(c.Request.Context())
	if err != nil {
		ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, "Failed to list buses", nil)
		return
	}
	response.Success(c, http.StatusOK, "Buses retrieved successfully", buses)
}

func (ctrl *controller) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	run, err := ctrl.service.CreateRun(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBusNotFound):
			response.Fail(c, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, ErrInvalidSchedule):
			response.Fail(c, http.StatusBadRequest, err.Error(), nil)
		default:
			ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
			response.Fail(c, http.StatusInternalServerError, "Failed to create schedule", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, "Schedule created successfully", run)
}

func (ctrl *controller) ListSchedules(c *gin.Context) {
	runs, err := ctrl.service.ListRuns(c.Request.Context())
	if err != nil {
		ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, "Failed to list schedules", nil)
		return
	}
	response.Success(c, http.StatusOK, "Schedules retrieved successfully", runs)
}

func (ctrl *controller) GetSchedule(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid run ID", err)
		return
	}

	run, err := ctrl.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			response.Fail(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, "Failed to get schedule", nil)
		return
	}

	response.Success(c, http.StatusOK, "Schedule retrieved successfully", run)
}
