// README: API server; wraps the gin router with CORS and owns the http.Server lifecycle.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"wanderplan/internal/infra"
	"wanderplan/internal/metrics"
	"wanderplan/internal/modules/aiusage"
	"wanderplan/internal/modules/llmsettings"
	"wanderplan/internal/modules/mapview"
	"wanderplan/internal/modules/trip"
	"wanderplan/internal/service"
)

type ServerDeps struct {
	Planner  *service.TripPlanner
	Usage    *aiusage.Service
	Trips    *trip.Service
	Settings *llmsettings.Service
	Maps     *mapview.Registry
	Verifier infra.TokenVerifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Server struct {
	srv     *http.Server
	logger  *slog.Logger
	timeout time.Duration
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              deps.Addr,
			Handler:           Handler(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  deps.Logger,
		timeout: deps.ShutdownTimeout,
	}
}

// Handler returns the router behind the CORS policy for the browser app.
func Handler(deps ServerDeps) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler(NewRouter(deps))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
