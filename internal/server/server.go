package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	CORSOrigin string // empty disables CORS headers
	Logger     *logrus.Entry
}

// Server serves the spreadsheet REST API backed by a Store.
type Server struct {
	store      *store.Store
	log        *logrus.Entry
	corsOrigin string
	handler    http.Handler
	httpServer *http.Server
}

// New creates a Server. The store stays owned by the caller.
func New(st *store.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		store:      st,
		log:        logger,
		corsOrigin: opts.CORSOrigin,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, useful for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.Handle("POST /api/auth/logout", s.requireAuth(s.handleLogout))

	mux.Handle("GET /api/spreadsheets", s.requireAuth(s.handleList))
	mux.Handle("POST /api/spreadsheets", s.requireAuth(s.handleCreate))
	mux.Handle("GET /api/spreadsheets/{id}", s.requireAuth(s.handleGet))
	mux.Handle("PATCH /api/spreadsheets/{id}", s.requireAuth(s.handleUpdate))
	mux.Handle("DELETE /api/spreadsheets/{id}", s.requireAuth(s.handleDelete))

	return s.observe(s.cors(mux))
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()
	s.log.WithField("addr", listener.Addr().String()).Info("API server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
