// README: Itinerary generation (SSE), itinerary validation and AI quota handlers.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/http/middleware"
	"wanderplan/internal/modules/aiusage"
	"wanderplan/internal/modules/itinerary"
	"wanderplan/internal/service"
)

type AIHandler struct {
	planner *service.TripPlanner
	usage   *aiusage.Service
	logger  *slog.Logger
}

func NewAIHandler(planner *service.TripPlanner, usage *aiusage.Service, logger *slog.Logger) *AIHandler {
	return &AIHandler{planner: planner, usage: usage, logger: logger}
}

type generateReq struct {
	Prompt             string               `json:"prompt"`
	ExistingActivities []itinerary.Activity `json:"existingActivities"`
	MaxRetries         *int                 `json:"maxRetries"`
	AutoSave           bool                 `json:"autoSave"`
	Title              string               `json:"title"`
}

// Generate handles POST /api/itineraries/generate. The response is a text/event-stream of
// "progress" events carrying StreamChunks and a final "result" event. Failures that occur
// before the first event are plain JSON errors; later ones arrive as an "error" event.
func (h *AIHandler) Generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(c, http.StatusBadRequest, "missing prompt")
		return
	}
	if req.MaxRetries != nil && (*req.MaxRetries < 0 || *req.MaxRetries > 10) {
		writeError(c, http.StatusBadRequest, "maxRetries must be between 0 and 10")
		return
	}

	streaming := false
	begin := func() {
		if streaming {
			return
		}
		streaming = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}
	emit := func(event string, v any) {
		begin()
		c.SSEvent(event, v)
		c.Writer.Flush()
	}

	res, err := h.planner.Plan(c.Request.Context(), service.PlanRequest{
		UID:        middleware.CallerUID(c),
		Prompt:     req.Prompt,
		Existing:   req.ExistingActivities,
		MaxRetries: req.MaxRetries,
		AutoSave:   req.AutoSave,
		Title:      req.Title,
	}, func(chunk itinerary.StreamChunk) {
		emit("progress", chunk)
	})
	if err != nil {
		if !streaming {
			writeServiceError(c, err)
			return
		}
		h.logger.Warn("itinerary stream aborted", "uid", middleware.CallerUID(c), "error", err)
		emit("error", errorResponse{Error: err.Error()})
		return
	}
	emit("result", res)
}

type validateResp struct {
	Valid    bool            `json:"valid"`
	Problems []string        `json:"problems"`
	Days     []itinerary.Day `json:"days,omitempty"`
}

// Validate handles POST /api/itineraries/validate for itineraries edited by the user.
func (h *AIHandler) Validate(c *gin.Context) {
	var it itinerary.Itinerary
	if err := c.ShouldBindJSON(&it); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	problems := itinerary.ValidateDetailed(it)
	if problems == nil {
		problems = []string{}
	}
	writeJSON(c, http.StatusOK, validateResp{
		Valid:    len(problems) == 0,
		Problems: problems,
		Days:     itinerary.GroupByDay(it.Activities),
	})
}

// Usage handles GET /api/ai/usage.
func (h *AIHandler) Usage(c *gin.Context) {
	if h.usage == nil {
		writeError(c, http.StatusNotFound, "quota is disabled")
		return
	}
	u, err := h.usage.Usage(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}
