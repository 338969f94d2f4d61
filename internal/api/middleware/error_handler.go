package middleware

import (
	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/pkg/errors"
	"jobqueue-service/internal/pkg/utils"
)

// ErrorHandler assigns every request a correlation id and renders any error
// pushed onto the gin context as the standard error envelope, unless a
// response has already been written. Handlers write their own envelopes
// through AbortWithError; this middleware covers errors left on the context.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateShortID()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := errors.FromError(c.Errors.Last().Err).WithRequestID(requestID)

		if apiErr.Status >= 500 {
			log.Error("Request failed",
				"request_id", requestID,
				"error_id", apiErr.ErrorID,
				"status", apiErr.Status,
				"error", c.Errors.Last().Err.Error(),
			)
		} else {
			log.Warn("Request rejected",
				"request_id", requestID,
				"status", apiErr.Status,
				"message", apiErr.Message,
			)
		}

		c.JSON(apiErr.Status, apiErr)
	}
}

// AbortWithError aborts the request with a standardized error envelope
func AbortWithError(c *gin.Context, err *errors.APIError) {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = utils.GenerateShortID()
	}
	err.RequestID = requestID

	c.JSON(err.Status, err)
	c.Abort()
}
