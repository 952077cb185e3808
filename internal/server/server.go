// Package server provides the HTTP API for tokenizing messages.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spicery/intent-tokenizer/internal/logging"
	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

const (
	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes limits request bodies.
	DefaultMaxBodyBytes = 1 << 20
)

// Config configures a Server.
type Config struct {
	Addr         string
	Timeout      time.Duration
	MaxBodyBytes int64
	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

// Server is the tokenizer HTTP API server. The tokenizer it serves can be
// swapped while requests are in flight.
type Server struct {
	tokenizer atomic.Pointer[tokenizer.Tokenizer]
	metrics   *Metrics
	logger    *slog.Logger
	maxBody   int64
	router    *chi.Mux
	server    *http.Server
}

// New creates a server for tok.
func New(cfg Config, tok *tokenizer.Tokenizer) (*Server, error) {
	if tok == nil {
		return nil, errors.New("server needs a tokenizer")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	metrics, err := NewMetrics("", cfg.Registerer)
	if err != nil {
		return nil, err
	}

	s := &Server{
		metrics: metrics,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
		router:  chi.NewRouter(),
	}
	s.tokenizer.Store(tok)

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(cfg.Timeout))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/tokenize", s.tokenize)
		r.Post("/split", s.split)
		r.Get("/rules", s.rules)
	})
	s.router.Get("/health", s.health)
	s.router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tokenizer returns the tokenizer currently served.
func (s *Server) Tokenizer() *tokenizer.Tokenizer {
	return s.tokenizer.Load()
}

// SetTokenizer replaces the tokenizer. Requests already running finish with
// the old one.
func (s *Server) SetTokenizer(tok *tokenizer.Tokenizer) {
	if tok != nil {
		s.tokenizer.Store(tok)
	}
}

// Reload builds a tokenizer with load and serves it. On error the current
// tokenizer stays in place.
func (s *Server) Reload(load func() (*tokenizer.Tokenizer, error)) error {
	tok, err := load()
	s.metrics.RecordReload(err)
	if err != nil {
		s.logger.Error("rules reload failed", "error", err)
		return err
	}
	s.SetTokenizer(tok)
	s.logger.Info("rules reloaded", "patterns", len(tok.Rules().Patterns))
	return nil
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with slog and records its metrics under
// the matched route pattern. Handlers find a logger tagged with the request
// ID through logging.FromContext.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.WithLogger(r.Context(), logger))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(route, status, elapsed)
		logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
		)
	})
}
