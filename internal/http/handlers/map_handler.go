// README: Map reconciliation handlers; one layer per caller, containers namespaced by uid.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/http/middleware"
	"wanderplan/internal/maps"
	"wanderplan/internal/modules/mapview"
	"wanderplan/internal/types"
)

type MapHandler struct {
	registry *mapview.Registry
	logger   *slog.Logger
}

func NewMapHandler(registry *mapview.Registry, logger *slog.Logger) *MapHandler {
	return &MapHandler{registry: registry, logger: logger}
}

func (h *MapHandler) layer(c *gin.Context) *mapview.Layer {
	return h.registry.Layer(middleware.CallerUID(c))
}

// snapshot returns the caller's view with the container id as the client named it.
func (h *MapHandler) snapshot(c *gin.Context) mapview.View {
	v := h.layer(c).Snapshot()
	v.ContainerID = strings.TrimPrefix(v.ContainerID, middleware.CallerUID(c)+"/")
	return v
}

type containerReq struct {
	ContainerID string `json:"containerId"`
}

// DeclareContainer handles POST /api/map/containers.
func (h *MapHandler) DeclareContainer(c *gin.Context) {
	var req containerReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ContainerID) == "" {
		writeError(c, http.StatusBadRequest, "missing containerId")
		return
	}
	h.registry.Scene().Declare(mapview.ContainerKey(middleware.CallerUID(c), req.ContainerID))
	writeJSON(c, http.StatusCreated, req)
}

type initReq struct {
	ContainerID string       `json:"containerId"`
	Center      *types.Point `json:"center"`
	CountryCode string       `json:"countryCode"`
	Zoom        int          `json:"zoom"`
}

// Init handles POST /api/map/init. Without a center, or with the zero point, the map opens
// on the country's capital.
func (h *MapHandler) Init(c *gin.Context) {
	var req initReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ContainerID) == "" {
		writeError(c, http.StatusBadRequest, "missing containerId")
		return
	}
	uid := middleware.CallerUID(c)
	center, _ := maps.CountryCenter(req.CountryCode)
	if req.Center != nil && !req.Center.IsZero() {
		center = *req.Center
	}
	onSelect := func(wp mapview.Marker, selected bool) {
		h.logger.Debug("waypoint selection changed", "uid", uid, "waypoint", wp.ID, "selected", selected)
	}
	if err := h.layer(c).Initialize(mapview.ContainerKey(uid, req.ContainerID), center, req.Zoom, onSelect); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.snapshot(c))
}

// Get handles GET /api/map. With ?format=geojson the scene is returned as a FeatureCollection.
func (h *MapHandler) Get(c *gin.Context) {
	if c.Query("format") == "geojson" {
		b, err := h.layer(c).GeoJSON()
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/geo+json", b)
		return
	}
	writeJSON(c, http.StatusOK, h.snapshot(c))
}

// Destroy handles DELETE /api/map.
func (h *MapHandler) Destroy(c *gin.Context) {
	h.registry.Drop(middleware.CallerUID(c))
	c.Status(http.StatusNoContent)
}

type searchResp struct {
	Places []maps.Place  `json:"places"`
	View   mapview.View `json:"view"`
}

// Search handles GET /api/map/search?keyword=&city=&country=.
func (h *MapHandler) Search(c *gin.Context) {
	places, err := h.layer(c).Search(c.Request.Context(), c.Query("keyword"), c.Query("city"), c.Query("country"))
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			h.logger.Warn("geocoding failed", "error", err)
			writeError(c, http.StatusBadGateway, err.Error())
			return
		}
		writeServiceError(c, err)
		return
	}
	if places == nil {
		places = []maps.Place{}
	}
	writeJSON(c, http.StatusOK, searchResp{Places: places, View: h.snapshot(c)})
}

type toggleResp struct {
	Selected  bool             `json:"selected"`
	Waypoint  *mapview.Marker  `json:"waypoint,omitempty"`
	Waypoints []mapview.Marker `json:"waypoints"`
}

// ToggleWaypoint handles POST /api/map/waypoints/toggle with a marker body.
func (h *MapHandler) ToggleWaypoint(c *gin.Context) {
	var m mapview.Marker
	if err := c.ShouldBindJSON(&m); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if m.ID == "" && m.SourceID == "" {
		writeError(c, http.StatusBadRequest, "marker needs an id or sourceId")
		return
	}
	l := h.layer(c)
	selected, err := l.ToggleWaypoint(m)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toggleResp{Selected: selected, Waypoints: l.Selected()})
}

// SelectPlace handles POST /api/map/places/:id/select, the popup "select this location" action.
func (h *MapHandler) SelectPlace(c *gin.Context) {
	l := h.layer(c)
	wp, selected, err := l.SelectPlace(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toggleResp{Selected: selected, Waypoint: &wp, Waypoints: l.Selected()})
}

type centerReq struct {
	Center types.Point `json:"center"`
	Zoom   int         `json:"zoom"`
}

// SetCenter handles POST /api/map/center.
func (h *MapHandler) SetCenter(c *gin.Context) {
	var req centerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.layer(c).SetCenter(req.Center, req.Zoom); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.snapshot(c))
}

type routeReq struct {
	// Waypoints default to the selected waypoints, in selection order.
	Waypoints []types.Point `json:"waypoints"`
	Mode      string        `json:"transportMode"`
}

// PlanRoute handles POST /api/map/route. Routing failures are a 200 with status "error".
func (h *MapHandler) PlanRoute(c *gin.Context) {
	var req routeReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	mode, err := maps.ParseTransportMode(req.Mode)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	l := h.layer(c)
	waypoints := req.Waypoints
	if len(waypoints) == 0 {
		for _, w := range l.Selected() {
			waypoints = append(waypoints, w.Point())
		}
	}
	res, err := l.PlanRoute(c.Request.Context(), waypoints, mode)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Clear handles the DELETE /api/map/{markers,selected,route,all} family.
func (h *MapHandler) Clear(what string) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := h.layer(c)
		switch what {
		case "markers":
			l.ClearMarkers()
		case "selected":
			l.ClearSelected()
		case "route":
			l.ClearRoute()
		case "all":
			l.ClearAll()
		default:
			_ = c.Error(errors.New("unknown clear target " + what))
			writeError(c, http.StatusNotFound, "not found")
			return
		}
		writeJSON(c, http.StatusOK, h.snapshot(c))
	}
}

type countryResp struct {
	Code   string      `json:"code"`
	Name   string      `json:"name,omitempty"`
	Center types.Point `json:"center"`
	Known  bool        `json:"known"`
}

// CountryCenter handles GET /api/map/countries/:code/center.
func (h *MapHandler) CountryCenter(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	center, known := maps.CountryCenter(code)
	writeJSON(c, http.StatusOK, countryResp{Code: code, Name: maps.CountryName(code), Center: center, Known: known})
}
