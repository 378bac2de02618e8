// Package api provides the read-only introspection REST surface: GET
// /status, GET /verify, GET /sessions/{agent_id}, and
// GET /sessions/{agent_id}/history/{session_id}, plus a GET /health
// liveness/readiness endpoint. It is an external collaborator to the
// protocol core — it never drives a verification session itself, only
// reads back what the orchestrator (pkg/verifier) and store (pkg/store)
// have already recorded.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/dpp-verifier/pkg/pool"
	"github.com/codeready-toolchain/dpp-verifier/pkg/ratelimit"
	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
	"github.com/codeready-toolchain/dpp-verifier/pkg/token"
)

// Server is the introspection HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	store    store.Store
	signer   *token.Signer
	pool     *pool.Pool
	limiter  *ratelimit.Limiter
	mockMode bool
}

// NewServer creates a new API server with Echo v5, wiring the read-only
// introspection routes over st, signer, and p. limiter may be nil (no
// inbound rate limiting applied to the REST surface).
func NewServer(st store.Store, signer *token.Signer, p *pool.Pool, limiter *ratelimit.Limiter, mockMode bool) *Server {
	e := echo.New()

	s := &Server{
		echo:     e,
		store:    st,
		signer:   signer,
		pool:     p,
		limiter:  limiter,
		mockMode: mockMode,
	}

	s.setupRoutes()
	return s
}

// Echo returns the underlying Echo instance so the connection adapter
// (pkg/transport) can register the WebSocket upgrade route alongside the
// REST surface on one listener.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(64 * 1024))
	s.echo.Use(securityHeaders())

	if s.limiter != nil {
		s.echo.Use(ratelimit.Middleware(s.limiter))
	}

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/status", s.statusHandler)
	s.echo.GET("/verify", s.verifyHandler)
	s.echo.GET("/sessions/:agent_id", s.listSessionsHandler)
	s.echo.GET("/sessions/:agent_id/history/:session_id", s.sessionHistoryHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
