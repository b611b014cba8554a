// README: Saved-trip handlers; every route is scoped to the authenticated caller.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/http/middleware"
	"wanderplan/internal/modules/itinerary"
	"wanderplan/internal/modules/trip"
)

type TripHandler struct {
	trips *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trips: svc}
}

type createTripReq struct {
	Title     string               `json:"title"`
	Status    trip.Status          `json:"status"`
	Itinerary *itinerary.Itinerary `json:"tripData"`
}

type updateTripReq struct {
	Title     *string              `json:"title"`
	Status    *trip.Status         `json:"status"`
	Itinerary *itinerary.Itinerary `json:"tripData"`
}

// Create handles POST /api/trips.
func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Itinerary == nil {
		writeError(c, http.StatusBadRequest, "missing tripData")
		return
	}
	t, err := h.trips.Create(c.Request.Context(), middleware.CallerUID(c), trip.CreateCommand{
		Title:     req.Title,
		Status:    req.Status,
		Itinerary: *req.Itinerary,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

// List handles GET /api/trips?status=&limit=&offset=.
func (h *TripHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid offset")
		return
	}
	page, err := h.trips.List(c.Request.Context(), middleware.CallerUID(c), trip.Status(c.Query("status")), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, page)
}

// Get handles GET /api/trips/:id.
func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.Get(c.Request.Context(), middleware.CallerUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// Update handles PUT /api/trips/:id. Absent fields are left unchanged.
func (h *TripHandler) Update(c *gin.Context) {
	var req updateTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trips.Update(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), trip.UpdateCommand{
		Title:     req.Title,
		Status:    req.Status,
		Itinerary: req.Itinerary,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// Delete handles DELETE /api/trips/:id.
func (h *TripHandler) Delete(c *gin.Context) {
	if err := h.trips.Delete(c.Request.Context(), middleware.CallerUID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
