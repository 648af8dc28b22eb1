package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restockbot/internal/models"
	"restockbot/pkg/logger"

	"go.uber.org/zap"
)

// Common error type definitions
var (
	// ErrResourceNotFound indicates resource not found error
	ErrResourceNotFound = errors.New("resource not found")

	// ErrServiceUnavailable indicates service unavailable error
	ErrServiceUnavailable = errors.New("service unavailable")
)

// writeError logs the failure and renders the uniform error body.
func writeError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		logger.Error("API error",
			zap.String("message", message),
			zap.Error(err),
			zap.Int("status_code", status))
	}

	c.JSON(status, models.ErrorResponse{
		Error:   true,
		Message: message,
		Code:    status,
	})
}

// notFound is a convenience wrapper for missing resources.
func notFound(c *gin.Context, message string) {
	writeError(c, http.StatusNotFound, message, ErrResourceNotFound)
}
