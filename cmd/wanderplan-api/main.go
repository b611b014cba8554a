// README: Entry point; loads config, wires services and runs the HTTP server until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"wanderplan/internal/ai"
	"wanderplan/internal/config"
	httptransport "wanderplan/internal/http"
	"wanderplan/internal/infra"
	"wanderplan/internal/maps"
	"wanderplan/internal/metrics"
	"wanderplan/internal/modules/aiusage"
	"wanderplan/internal/modules/itinerary"
	"wanderplan/internal/modules/llmsettings"
	"wanderplan/internal/modules/mapview"
	"wanderplan/internal/modules/trip"
	"wanderplan/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("wanderplan-api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	m := metrics.New()

	var (
		usageSvc *aiusage.Service
		tripSvc  *trip.Service
		settings *llmsettings.Store
		quota    service.Quota
		saver    service.TripSaver
	)
	if cfg.DB.DSN != "" {
		if cfg.DB.AutoMigrate {
			if err := infra.Migrate(ctx, cfg.DB.DSN, logger); err != nil {
				return err
			}
		}
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		usageSvc = aiusage.NewService(aiusage.NewStore(pool, cfg.Quota.MonthlyTokens))
		tripSvc = trip.NewService(trip.NewStore(pool))
		settings = llmsettings.NewStore(pool)
		quota, saver = usageSvc, tripSvc
	} else {
		logger.Warn("no database configured; trips, AI quota and per-user LLM settings are disabled")
	}

	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable; geocoding cache is local only", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	streamer, err := ai.NewStreamer(cfg.AI.Provider, ai.NewHTTPClient(cfg.AI.HeaderTimeout), logger)
	if err != nil {
		return err
	}
	generator := itinerary.NewGenerator(streamer, logger, itinerary.WithRecorder(m))
	serverLLM := ai.LLMConfig{APIKey: cfg.AI.APIKey, BaseURL: cfg.AI.BaseURL, Model: cfg.AI.Model}
	if cfg.AI.APIKey == "" {
		logger.Warn("no server LLM api key configured; only users with their own settings can generate")
	}
	settingsSvc := llmsettings.NewService(settings, serverLLM, cfg.AI.AllowedBaseURLs)
	planner := service.NewTripPlanner(generator, settingsSvc, quota, saver, service.PlannerOptions{
		MaxRetries:    cfg.AI.MaxRetries,
		StreamTimeout: cfg.AI.StreamTimeout,
	}, logger)
	var settingsAPI *llmsettings.Service
	if settings != nil {
		settingsAPI = settingsSvc
	}

	geocoder, router, err := newMapProviders(cfg.Maps, rdb, logger)
	if err != nil {
		return err
	}
	registry := mapview.NewRegistry(mapview.NewScene(), mapview.LayerDeps{
		Geocoder: geocoder,
		Router:   router,
		Logger:   logger,
		Recorder: m,
	}, mapview.Options{
		TileURL:       cfg.Maps.TileURL,
		SingleHitZoom: cfg.Maps.SingleHitZoom,
		RouteTimeout:  cfg.Maps.RouteTimeout,
	})

	server := httptransport.NewServer(httptransport.ServerDeps{
		Planner:         planner,
		Usage:           usageSvc,
		Trips:           tripSvc,
		Settings:        settingsAPI,
		Maps:            registry,
		Verifier:        verifier,
		Metrics:         m,
		Logger:          logger,
		Addr:            cfg.HTTP.Addr,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	return server.Run(ctx)
}

func newVerifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (infra.TokenVerifier, error) {
	if cfg.Firebase.ProjectID == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("WANDER_FIREBASE_PROJECT_ID is required outside development")
		}
		logger.Warn("firebase is not configured; accepting dev:<uid> bearer tokens")
		return infra.DevVerifier{}, nil
	}
	v, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return v, nil
}

func newMapProviders(cfg config.MapsConfig, rdb *redis.Client, logger *slog.Logger) (maps.Geocoder, maps.Router, error) {
	var (
		geocoder maps.Geocoder
		router   maps.Router
	)
	switch strings.ToLower(cfg.Provider) {
	case "google":
		g, err := maps.NewGoogle(cfg.GoogleKey, "en")
		if err != nil {
			return nil, nil, fmt.Errorf("google maps init: %w", err)
		}
		geocoder, router = g, g
	case "", "osm":
		client := &http.Client{Timeout: 15 * time.Second}
		geocoder = maps.NewNominatim(cfg.NominatimURL, cfg.UserAgent, client)
		router = maps.NewOSRMRouter(cfg.OSRMURL, client)
	default:
		return nil, nil, fmt.Errorf("unknown maps provider %q", cfg.Provider)
	}
	return maps.NewCachedGeocoder(geocoder, rdb, cfg.CacheTTL, logger), router, nil
}
