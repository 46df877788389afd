package utils

import (
	"errors"
	"net/http"

	"medvisit/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RespondError maps an application error onto an HTTP response. Dependency
// and internal failures are logged server-side and surfaced as opaque 5xx
// bodies; everything else carries its code, message and details.
func RespondError(c *gin.Context, err error) {
	logger := GetLogger()

	var app *apperrors.AppError
	if !errors.As(err, &app) {
		logger.Error("unclassified error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"})
		return
	}

	switch app.Code {
	case apperrors.CodeDependency, apperrors.CodeInternal:
		logger.Error(app.Message, zap.Error(app))
		c.JSON(app.HTTPStatus, ErrorResponse{Code: app.Code, Message: app.Message})
	default:
		logger.Warn(app.Message, zap.String("code", app.Code))
		c.JSON(app.HTTPStatus, ErrorResponse{Code: app.Code, Message: app.Message, Details: app.Details})
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	resp := ErrorResponse{Message: message}
	if details != "" {
		resp.Details = map[string]any{"details": details}
	}
	c.JSON(status, resp)
}
