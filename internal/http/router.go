// README: HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/http/handlers"
	"wanderplan/internal/http/middleware"
)

// NewRouter registers every route. Everything under /api requires a bearer token.
func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	var observer middleware.RequestObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}
	r.Use(middleware.Logging(deps.Logger, observer), middleware.Recovery(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	aiHandler := handlers.NewAIHandler(deps.Planner, deps.Usage, deps.Logger)
	api.POST("/itineraries/generate", aiHandler.Generate)
	api.POST("/itineraries/validate", aiHandler.Validate)
	api.GET("/ai/usage", aiHandler.Usage)

	if deps.Trips != nil {
		tripHandler := handlers.NewTripHandler(deps.Trips)
		api.POST("/trips", tripHandler.Create)
		api.GET("/trips", tripHandler.List)
		api.GET("/trips/:id", tripHandler.Get)
		api.PUT("/trips/:id", tripHandler.Update)
		api.DELETE("/trips/:id", tripHandler.Delete)
	}

	if deps.Settings != nil {
		settingsHandler := handlers.NewSettingsHandler(deps.Settings)
		api.GET("/users/api-keys", settingsHandler.Get)
		api.PUT("/users/api-keys", settingsHandler.Put)
		api.DELETE("/users/api-keys", settingsHandler.Delete)
	}

	mapHandler := handlers.NewMapHandler(deps.Maps, deps.Logger)
	m := api.Group("/map")
	m.POST("/containers", mapHandler.DeclareContainer)
	m.POST("/init", mapHandler.Init)
	m.GET("", mapHandler.Get)
	m.DELETE("", mapHandler.Destroy)
	m.GET("/search", mapHandler.Search)
	m.POST("/waypoints/toggle", mapHandler.ToggleWaypoint)
	m.POST("/places/:id/select", mapHandler.SelectPlace)
	m.POST("/center", mapHandler.SetCenter)
	m.POST("/route", mapHandler.PlanRoute)
	m.DELETE("/route", mapHandler.Clear("route"))
	m.DELETE("/markers", mapHandler.Clear("markers"))
	m.DELETE("/selected", mapHandler.Clear("selected"))
	m.DELETE("/all", mapHandler.Clear("all"))
	m.GET("/countries/:code/center", mapHandler.CountryCenter)

	return r
}
