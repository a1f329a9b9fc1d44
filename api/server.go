// Package api exposes the assistant over HTTP REST.
//
// Endpoints:
//
//	POST   /api/v1/chat                      answer a student message
//	GET    /api/v1/sessions                  list sessions
//	GET    /api/v1/sessions/{id}             session metadata
//	GET    /api/v1/sessions/{id}/turns       conversation history
//	DELETE /api/v1/sessions/{id}             delete a session
//	GET    /api/v1/faqs                      list FAQ entries
//	POST   /api/v1/faqs                      create and index an entry
//	GET    /api/v1/faqs/{id}                 fetch one entry
//	PUT    /api/v1/faqs/{id}                 update and reindex
//	DELETE /api/v1/faqs/{id}                 delete and deindex
//	POST   /api/v1/faqs/reindex              rebuild all embeddings
//	GET    /api/v1/escalations               staff follow-up queue
//	POST   /api/v1/escalations/{id}/resolve  close a pending escalation
//	GET    /health                           liveness probe
//	GET    /ready                            readiness probe (DB ping)
//
// Health probes sit outside the middleware chain so orchestrator checks
// are never rate limited or logged as traffic.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayakbot/sahayak/internal/escalate"
	"github.com/sahayakbot/sahayak/internal/faq"
	"github.com/sahayakbot/sahayak/internal/session"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for in-flight requests
	// during graceful shutdown.
	ShutdownTimeout = 15 * time.Second

	// ReadHeaderTimeout bounds header reads to stop slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading an entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout covers the full response write. Generation with retries
	// can take a while, so this stays generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout closes idle keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ServerConfig carries the dependencies and knobs for the HTTP server.
type ServerConfig struct {
	Pipeline    ChatService
	Sessions    *session.Store
	FAQs        *faq.Store
	Escalations *escalate.Store
	Pool        *pgxpool.Pool
	Logger      *slog.Logger

	// RatePerSecond and RateBurst configure per-IP rate limiting.
	// Zero values fall back to 5 req/s with a burst of 10.
	RatePerSecond float64
	RateBurst     int

	// TrustProxy enables X-Real-IP / X-Forwarded-For for client IPs.
	// Only set behind a reverse proxy that strips those headers.
	TrustProxy bool

	// CORSOrigins lists origins allowed to call the API from browsers.
	// Empty disables CORS headers entirely.
	CORSOrigins []string
}

// Server is the HTTP server for the assistant's REST API.
type Server struct {
	handler http.Handler
	logger  *slog.Logger
}

// NewServer builds the route table and middleware chain.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}

	apiMux := http.NewServeMux()
	NewChatHandler(cfg.Pipeline, logger).RegisterRoutes(apiMux)
	NewSessionHandler(cfg.Sessions, logger).RegisterRoutes(apiMux)
	NewFAQHandler(cfg.FAQs, logger).RegisterRoutes(apiMux)
	NewEscalationHandler(cfg.Escalations, logger).RegisterRoutes(apiMux)

	limiter := newRateLimiter(cfg.RatePerSecond, cfg.RateBurst)
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
	}
	if len(cfg.CORSOrigins) > 0 {
		middlewares = append(middlewares, corsMiddleware(cfg.CORSOrigins))
	}
	middlewares = append(middlewares, rateLimitMiddleware(limiter, cfg.TrustProxy, logger))
	wrapped := chain(apiMux, middlewares...)

	root := http.NewServeMux()
	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(root)
	root.Handle("/", wrapped)

	return &Server{handler: root, logger: logger}
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the server and blocks until the context is cancelled or the
// listener fails. Shutdown is graceful within ShutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
