// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/decentradns/internal/auth"
	"github.com/pendergraft/decentradns/internal/config"
	"github.com/pendergraft/decentradns/internal/domains/domain"
	"github.com/pendergraft/decentradns/internal/domains/transport"
	"github.com/pendergraft/decentradns/internal/events"
	"github.com/pendergraft/decentradns/internal/middleware"
	"github.com/pendergraft/decentradns/internal/observability/metrics"
	"github.com/pendergraft/decentradns/internal/pinning"
	"github.com/pendergraft/decentradns/internal/registry"
	"github.com/pendergraft/decentradns/internal/resolver"
	"github.com/pendergraft/decentradns/internal/storage"
)

// Server is the HTTP server
type Server struct {
	cfg     *config.Config
	backend storage.Backend
	logger  *slog.Logger
	router  *chi.Mux

	store     *registry.Store
	keys      *auth.KeyStore
	resolver  *resolver.Resolver
	publisher events.Publisher
	limiter   *middleware.RateLimiter

	domainsSvc domain.Service
}

// New wires the registry, its collaborators and the HTTP routes on top of backend.
func New(cfg *config.Config, backend storage.Backend, logger *slog.Logger) (*Server, error) {
	pinner, err := pinning.New(cfg.Pinning, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing pinning: %w", err)
	}

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing events: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		backend:   backend,
		logger:    logger,
		router:    chi.NewRouter(),
		keys:      auth.NewKeyStore(backend),
		publisher: publisher,
	}

	s.store = registry.NewStore(backend,
		registry.WithHistoryLimit(cfg.Registry.HistoryLimit),
		registry.WithPlaceholderAddress(cfg.Registry.PlaceholderAddress),
		registry.WithLogger(logger),
		registry.WithHistoryHook(func(_ context.Context, rec registry.HistoryRecord) {
			metrics.HistoryEntry(string(rec.Action))
		}),
		registry.WithHistoryHook(events.Hook(publisher, logger)),
	)

	s.resolver = resolver.New(
		registry.NewLenient(s.store, logger),
		pinner,
		cfg.Resolver.CacheSize,
		cfg.Resolver.CacheTTL(),
	)

	svc := domain.NewService(s.store, pinner, logger, domain.WithInvalidator(s.resolver))
	s.domainsSvc = domain.InstrumentingMiddleware()(domain.LoggingMiddleware(logger)(svc))

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the domain record store.
func (s *Server) Store() *registry.Store {
	return s.store
}

// Close stops background work and flushes the event publisher.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.publisher.Close()
}

func (s *Server) setupMiddleware() {
	// Client IP first so the filter, limiter and logger see the real caller.
	s.router.Use(middleware.ClientIP(middleware.ProxyConfig{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))
	s.router.Use(middleware.ScanFilter(s.cfg.Security.FilterEnabled))
	s.router.Use(middleware.MaxBodySize(s.cfg.Security.MaxBodySizeMB))

	if s.cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			Enabled:             true,
			RequestsPerMin:      s.cfg.RateLimit.RequestsPerMin,
			WriteRequestsPerMin: s.cfg.RateLimit.WriteRequestsPerMin,
			BurstSize:           s.cfg.RateLimit.BurstSize,
			CleanupMinutes:      s.cfg.RateLimit.CleanupMinutes,
		})
		s.router.Use(s.limiter.Handler)
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second))
	}
	s.router.Use(chimw.Compress(5))

	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", metrics.Handler())

	domainsHandler := transport.NewHandler(s.domainsSvc, s.resolver)

	s.router.Route("/api/v1", func(r chi.Router) {
		domainsHandler.RegisterReadRoutes(r)

		r.Group(func(r chi.Router) {
			if s.cfg.Auth.Type == "api-key" {
				r.Use(auth.Middleware(s.keys, writeError))
			}
			domainsHandler.RegisterWriteRoutes(r)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the persistence backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.backend.Read(ctx, storage.DomainsKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
