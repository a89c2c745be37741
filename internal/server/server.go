// Package server exposes the sectorflow HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rewired-gh/sectorflow/internal/feed"
	"github.com/rewired-gh/sectorflow/internal/market"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/pulse"
)

// FeedGenerator builds community feeds.
type FeedGenerator interface {
	Generate(asOf time.Time) (models.CommunityFeed, error)
	Universe() feed.Universe
}

// ReturnService computes trailing returns for ticker batches.
type ReturnService interface {
	Returns(ctx context.Context, tickers []string) ([]models.ReturnRecord, []market.Failure, error)
	MaxTickers() int
}

// PulseBuilder builds the market pulse.
type PulseBuilder interface {
	Build(ctx context.Context, spendSectors []string) (pulse.Pulse, error)
}

// SnapshotLister lists archived feed snapshots.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotHeader, error)
}

// Config holds server configuration. Market, Pulse, History and Metrics are optional;
// their routes answer with an error envelope when unset.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	Log          zerolog.Logger

	Feed    FeedGenerator
	Market  ReturnService
	Pulse   PulseBuilder
	History SnapshotLister
	Metrics *metrics.Registry
	Now     func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	feed    FeedGenerator
	market  ReturnService
	pulse   PulseBuilder
	history SnapshotLister
	metrics *metrics.Registry
	now     func() time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		feed:    cfg.Feed,
		market:  cfg.Market,
		pulse:   cfg.Pulse,
		history: cfg.History,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.setupMiddleware(cfg.CORSOrigins, cfg.WriteTimeout)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(origins []string, writeTimeout time.Duration) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	if writeTimeout > 0 {
		s.router.Use(middleware.Timeout(writeTimeout))
	}

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/community", func(r chi.Router) {
			r.Get("/", s.handleCommunity)
			r.Get("/breakdown", s.handleBreakdown)
			r.Get("/history", s.handleHistory)
		})
		r.Get("/signals", s.handleSignals)
		r.Get("/market", s.handleMarket)
		r.Get("/pulse", s.handlePulse)
		r.Post("/alignment", s.handleAlignment)
		r.Post("/spend/summary", s.handleSpendSummary)
		r.Post("/spend/autoinvest", s.handleAutoInvest)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(route, ww.Status(), elapsed)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
