package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/handler"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

// Handlers groups everything served by the API.
type Handlers struct {
	Readings      *handler.ReadingHandler
	Thresholds    *handler.ThresholdHandler
	Rules         *handler.RuleHandler
	Alerts        *handler.AlertHandler
	Journal       *handler.JournalHandler // nil without a database
	Notifications *handler.NotificationHandler
	Health        *handler.HealthHandler
	WebSocket     *handler.WebSocketHandler
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router: router,
		cfg:    cfg,
		log:    log.WithComponent("server"),
		httpServer: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			// CORS wraps the router so preflight requests are answered even
			// though routes are registered for concrete methods only.
			Handler:        middleware.CORS(cfg.Security.CORSAllowedOrigins, cfg.Security.CORSAllowedMethods)(router),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// RegisterHandlers mounts the API under /api/v1. Health, metrics and the
// websocket stay at the root, outside authentication. ctx bounds background
// work started by middleware.
func (s *Server) RegisterHandlers(ctx context.Context, h Handlers, tokens middleware.TokenParser) {
	s.router.Use(middleware.Recovery(s.log))

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestLogger(s.log))
	if s.cfg.Security.EnableRateLimit {
		api.Use(middleware.RateLimit(ctx, s.cfg.Security.RateLimitPerMinute))
	}
	api.Use(middleware.Authenticate(tokens, s.log))

	h.Readings.RegisterRoutes(api)
	h.Thresholds.RegisterRoutes(api)
	h.Rules.RegisterRoutes(api)
	h.Alerts.RegisterRoutes(api)
	if h.Journal != nil {
		h.Journal.RegisterRoutes(api)
	}
	h.Notifications.RegisterRoutes(api)

	h.Health.RegisterRoutes(s.router)
	h.WebSocket.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.log.Info("All handlers registered")
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
