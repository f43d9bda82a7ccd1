// Package api exposes the query service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/appri/incidentdb/internal/debug"
	"github.com/appri/incidentdb/internal/resultset"
	"github.com/appri/incidentdb/internal/service"
)

// QueryRunner is the part of the query service the API needs.
type QueryRunner interface {
	Schema(ctx context.Context) (map[string]domain.TableSchema, error)
	Preview(ctx context.Context, req service.QueryRequest) (*service.PreviewResult, error)
	Download(ctx context.Context, req service.QueryRequest) (*resultset.Result, error)
	Explain(ctx context.Context, req service.QueryRequest) (*service.Explanation, error)
}

// Options configures the server.
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end of the query service.
type Server struct {
	svc     QueryRunner
	opts    Options
	handler http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(svc QueryRunner, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{svc: svc, opts: opts}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	// Registered on the root router: a PathPrefix subrouter reports a
	// method mismatch as 404.
	router.HandleFunc("/api/schema", s.handleSchema).Methods(http.MethodGet)
	router.HandleFunc("/api/query", s.handleQuery).Methods(http.MethodPost)
	router.HandleFunc("/api/download", s.handleDownload).Methods(http.MethodPost)
	router.HandleFunc("/api/explain", s.handleExplain).Methods(http.MethodPost)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	chain := MiddlewareChain(
		RequestIDMiddleware,
		RequestLoggerMiddleware,
		CORSMiddleware(opts.AllowedOrigins),
	)
	s.handler = chain(router)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		debug.Info("server started", "addr", s.opts.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	debug.Info("server stopped")
	return nil
}
