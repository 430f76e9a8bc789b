package auth

import (
	"errors"
	"net/http"
	"strings"

	"busseat/internal/shared/middleware"
	"busseat/internal/shared/utils/response"
	"busseat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
	logger    *logger.Logger
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
		logger:    logger.GetDefault(),
	}
}

// bind decodes and validates the body, replying 400 with per-field
// messages when it fails
func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err)
		return false
	}

	if err := c.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Validation failed", nil, fieldMessages(fieldErrs))
			return false
		}
		response.Fail(ctx, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func fieldMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "min":
			out[field] = "must be at least " + fe.Param() + " characters"
		case "max":
			out[field] = "must be at most " + fe.Param() + " characters"
		case "oneof":
			out[field] = "must be one of: " + fe.Param()
		default:
			out[field] = "failed " + fe.Tag() + " validation"
		}
	}
	return out
}

func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !c.bind(ctx, &req) {
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserAlreadyExists):
			response.Fail(ctx, http.StatusConflict, "User with this username already exists", nil)
		default:
			c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.Fail(ctx, http.StatusInternalServerError, "Failed to register user", nil)
		}
		return
	}

	response.Success(ctx, http.StatusCreated, "User registered successfully", resp)
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if !c.bind(ctx, &req) {
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.logger.LogAuthFailure(ctx.Request.Context(), "invalid credentials", ctx.ClientIP())
			response.Fail(ctx, http.StatusUnauthorized, "Invalid username or password", nil)
		default:
			c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.Fail(ctx, http.StatusInternalServerError, "Failed to login", nil)
		}
		return
	}

	c.logger.LogAuthSuccess(ctx.Request.Context(), resp.User.ID, "password")
	response.Success(ctx, http.StatusOK, "Login successful", resp)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	identity, exists := middleware.IdentityFrom(ctx)
	if !exists {
		response.Fail(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	userData := map[string]interface{}{
		"id":       identity.UserID,
		"username": identity.Username,
		"role":     identity.Role,
	}

	response.Success(ctx, http.StatusOK, "User data retrieved successfully", userData)
}
