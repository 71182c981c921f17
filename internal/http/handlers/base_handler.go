// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxibook/internal/logger"
	"taxibook/internal/maps"
	"taxibook/internal/modules/booking"
	"taxibook/internal/modules/pricing"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidArgument), errors.Is(err, booking.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, maps.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidState), errors.Is(err, booking.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, maps.ErrLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(c *gin.Context, log *logger.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}
