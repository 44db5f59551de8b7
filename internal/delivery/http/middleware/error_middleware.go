package middleware

import (
	"errors"
	"net/http"

	"portfolio-backend/internal/delivery/http/response"
	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/apperror"
	"portfolio-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		requestID := c.GetString("RequestID")
		client, _ := c.Request.Context().Value(domain.KeyClientKey).(string)

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Log.Error("request failed", "request_id", requestID, "client", client, "status", appErr.Code, "error", appErr.Err)
			}
			response.Error(c, appErr.Code, appErr.Message, appErr.Details)
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("internal server error", "request_id", requestID, "client", client, "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		appErr := apperror.MethodNotAllowed()
		response.Error(c, appErr.Code, appErr.Message, nil)
	}
}

// NotFound answers unknown routes in the same envelope as other errors.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		appErr := apperror.NotFound("Not found")
		response.Error(c, appErr.Code, appErr.Message, nil)
	}
}
