// Package http exposes the identity service REST API under /auth.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/gorilla/mux"
)

type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewHTTPServer(a string, l logging.Logger, svc CredentialService, m *metrics.Metrics, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         a,
		handler:         NewRouter(svc, l, m),
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// NewRouter builds the /auth routes plus /metrics.
func NewRouter(svc CredentialService, l logging.Logger, m *metrics.Metrics) *mux.Router {
	h := &Handlers{svc: svc, logger: l.With("module", "http_handlers")}

	r := mux.NewRouter()
	r.Use(m.Middleware)
	h.RegisterRoutes(r)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
