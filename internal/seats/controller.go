package seats

import (
	"errors"
	"net/http"

	"busseat/internal/shared/middleware"
	"busseat/internal/shared/utils/response"
	"busseat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	GetSeats(c *gin.Context)
	CreateBooking(c *gin.Context)
	GetOccupancy(c *gin.Context)
}

type controller struct {
	service Service
	logger  *logger.Logger
}

func NewController(service Service) Controller {
	return &controller{service: service, logger: logger.GetDefault()}
}

// respondError maps store outcomes to status codes. Every conflict gets a 409.
func (ctrl *controller) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidRunID):
		response.Fail(c, http.StatusBadRequest, "Invalid run ID", err)
	case errors.Is(err, ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, ErrSeatConflict):
		response.Fail(c, http.StatusConflict, "Seat is already booked", err)
	case errors.Is(err, ErrNotFound):
		response.Fail(c, http.StatusNotFound, "Run or seat not found", err)
	default:
		ctrl.logger.LogHTTPError(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, fallback, nil)
	}
}

func (ctrl *controller) GetSeats(c *gin.Context) {
	vector, err := ctrl.service.GetSeats(c.Request.Context(), c.Param("runId"))
	if err != nil {
		ctrl.respondError(c, err, "Failed to get seats")
		return
	}
	response.Success(c, http.StatusOK, "Seats retrieved successfully", vector)
}

func (ctrl *controller) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	identity, exists := middleware.IdentityFrom(c)
	if !exists {
		response.Fail(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	booking, err := ctrl.service.Book(c.Request.Context(), req, identity)
	if err != nil {
		ctrl.respondError(c, err, "Failed to book seat")
		return
	}

	response.Success(c, http.StatusCreated, "Seat booked successfully", booking)
}

func (ctrl *controller) GetOccupancy(c *gin.Context) {
	occupancy, err := ctrl.service.Occupancy(c.Request.Context(), c.Param("runId"))
	if err != nil {
		ctrl.respondError(c, err, "Failed to get occupancy")
		return
	}
	response.Success(c, http.StatusOK, "Occupancy retrieved successfully", occupancy)
}
