package handlers

import (
	"errors"
	"net/http"

	"botdesk/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var stageErr *services.StageError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": message}; unexpected errors are logged and
// hidden from the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var stageErr *services.StageError
	switch {
	case errors.As(err, &stageErr):
		body["stage"] = stageErr.Stage
		logger.Warn("Integration stage failed", zap.String("stage", stageErr.Stage), zap.Error(stageErr.Err))
	case status == http.StatusInternalServerError:
		logger.Error("Request error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		body["error"] = "Internal server error"
	}
	c.JSON(status, body)
}
