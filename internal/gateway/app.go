// Package gateway wires the edge gateway: the delegated authentication
// filter in front of a prefix route table of reverse proxies.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/config"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/filter"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/proxy"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/verifier"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	handler http.Handler
	closers []io.Closer
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app := &App{config: c, logger: logger, metrics: metrics.New(registry)}

	v, err := app.newVerifier()
	if err != nil {
		app.close()
		return nil, err
	}

	pipeline := filter.NewPipeline(v, c.PublicPrefixes, c.VerifyTimeout, filter.WithMetrics(app.metrics))
	f := filter.New(pipeline, logger, app.metrics)

	upstreams := mux.NewRouter()
	if err := proxy.NewRouter(upstreams, c.Routes, logger.With("module", "proxy")); err != nil {
		app.close()
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(app.metrics.Middleware)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/metrics", app.metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(f.Handler(upstreams))
	app.handler = r

	return app, nil
}

func (app *App) newVerifier() (verifier.Verifier, error) {
	c := app.config

	var v verifier.Verifier
	switch c.VerifierMode {
	case config.ModeLocal:
		v = verifier.NewLocal(auth.NewTokenService([]byte(c.SecretKey), c.TokenIssuer, 0))
	case config.ModeGRPC:
		conn, err := verifier.DialGRPC(c.IdentityGRPCAddr)
		if err != nil {
			return nil, fmt.Errorf("identity grpc client: %w", err)
		}
		app.closers = append(app.closers, conn)
		v = verifier.NewGRPC(conn)
	default:
		v = verifier.NewHTTP(&http.Client{Timeout: c.VerifyTimeout}, c.ValidateURL)
	}

	if c.CacheTTL > 0 {
		v = verifier.NewCached(v, c.CacheSize, c.CacheTTL, app.metrics)
	}
	app.logger.Info(context.Background(), "token verifier ready", "mode", c.VerifierMode, "cache_ttl", c.CacheTTL)
	return v, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Handler is the full gateway handler chain.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:              app.config.ListenAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "gateway shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting gateway", "address", app.config.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) close() {
	for _, c := range app.closers {
		_ = c.Close()
	}
}
