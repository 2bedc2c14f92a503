// Package server implements the fabline feature query API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/carveworks/fabline/internal/config"
	"github.com/carveworks/fabline/internal/store"
)

// Server serves the persisted feature table and quality report over HTTP.
type Server struct {
	warehouse    store.Warehouse
	warehouseDir string
	router       chi.Router
	addr         string
	srv          *http.Server
}

// New builds the router with CORS, rate limiting, and JSON defaults applied
// to every route.
func New(addr string, wh store.Warehouse, warehouseDir string, cfg config.ServerConfig) *Server {
	s := &Server{
		warehouse:    wh,
		warehouseDir: warehouseDir,
		addr:         addr,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	r.Use(rateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router = r
	s.registerRoutes(r)
	return s
}

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	zap.L().Info("server: listening", zap.String("addr", s.addr))
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// rateLimit applies a single process-wide token bucket to every request.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/features", s.getFeatures)
	r.Get("/quality", s.getQuality)
}
