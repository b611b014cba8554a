// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/ai"
	"wanderplan/internal/modules/aiusage"
	"wanderplan/internal/modules/itinerary"
	"wanderplan/internal/modules/llmsettings"
	"wanderplan/internal/modules/mapview"
	"wanderplan/internal/modules/trip"
	"wanderplan/internal/service"
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

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, trip.ErrNotFound),
		errors.Is(err, llmsettings.ErrNotFound),
		errors.Is(err, mapview.ErrContainerNotFound),
		errors.Is(err, mapview.ErrUnknownMarker):
		return http.StatusNotFound
	case errors.Is(err, trip.ErrBadRequest),
		errors.Is(err, service.ErrBadRequest),
		errors.Is(err, itinerary.ErrValidation),
		errors.Is(err, llmsettings.ErrInvalid),
		errors.Is(err, mapview.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, mapview.ErrPrecondition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mapview.ErrNotReady),
		errors.Is(err, mapview.ErrContainerInUse):
		return http.StatusConflict
	case errors.Is(err, aiusage.ErrInsufficientTokens):
		return http.StatusTooManyRequests
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}
