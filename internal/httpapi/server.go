// Package httpapi exposes the cached market data over HTTP. Routes map
// one to one onto the service façades; caching, request coalescing and
// upstream resilience all live below the handlers.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/service"
)

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Registry supplies the shared cache, flight table and upstream
	// client behind every façade. Required.
	Registry *service.Registry

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer

	ServiceName    string
	ServiceVersion string
}

// Server serves the gateway API.
type Server struct {
	httpServer *http.Server

	registry *service.Registry
	markets  *service.MarketService
	events   *service.EventService
	series   *service.SeriesService
	comments *service.CommentService
	search   *service.SearchService
	sports   *service.SportsService
	builders *service.BuilderService

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	serviceName    string
	serviceVersion string
}

// NewServer creates the gateway HTTP server with its routes and
// middleware wired.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger("info", "json")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics(nil)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("httpapi")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "markets-gateway"
	}

	s := &Server{
		registry:       cfg.Registry,
		markets:        service.NewMarketService(cfg.Registry),
		events:         service.NewEventService(cfg.Registry),
		series:         service.NewSeriesService(cfg.Registry),
		comments:       service.NewCommentService(cfg.Registry),
		search:         service.NewSearchService(cfg.Registry),
		sports:         service.NewSportsService(cfg.Registry),
		builders:       service.NewBuilderService(cfg.Registry),
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		tracer:         cfg.Tracer,
		serviceName:    cfg.ServiceName,
		serviceVersion: cfg.ServiceVersion,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.buildHandler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildHandler assembles the route table and the middleware chain.
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	// handle registers a route with per-route metrics labelled by the
	// pattern, keeping label cardinality independent of raw paths.
	handle := func(pattern string, h http.HandlerFunc) {
		route := pattern
		if i := strings.IndexByte(pattern, ' '); i >= 0 {
			route = pattern[i+1:]
		}
		mux.Handle(pattern, s.instrument(route, h))
	}

	handle("GET /markets", s.handleMarkets)
	handle("GET /markets/search", s.handleSearchMarkets)
	handle("GET /markets/slug/{slug}", s.handleMarketBySlug)
	handle("GET /markets/{id}", s.handleMarketByID)

	handle("GET /events", s.handleEvents)
	handle("GET /events/search", s.handleSearchEvents)
	handle("GET /events/slug/{slug}", s.handleEventBySlug)
	handle("GET /events/{id}", s.handleEventByID)

	handle("GET /series", s.handleSeries)
	handle("GET /series/{id}", s.handleSeriesByID)

	handle("GET /comments", s.handleComments)
	handle("GET /search", s.handleSearch)

	handle("GET /sports/teams", s.handleTeams)
	handle("GET /sports/leagues", s.handleLeagues)

	handle("GET /builders/leaderboard", s.handleLeaderboard)
	handle("GET /builders/volume/{address}", s.handleBuilderVolume)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	var handler http.Handler = mux
	handler = s.withRecovery(handler)
	handler = s.withAccessLog(handler)
	handler = s.withRequestID(handler)
	return handler
}

// Handler returns the fully wired handler. Used by tests to serve the
// API without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
