package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// Success replies with a success envelope
func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, StatusSuccess, code, message, data, nil)
}

// Fail replies with an error envelope and aborts the handler chain
func Fail(c *gin.Context, code int, message string, err error) {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	RespondJSON(c, StatusError, code, message, nil, details)
	c.Abort()
}
