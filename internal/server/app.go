// Package server wires and runs the identity service: the REST API, the
// TokenVerifier gRPC endpoint and the expiry reaper, all sharing one
// PostgreSQL pool and shutting down together on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/cryptox"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/config"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/events"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/notify"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/ratelimit"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/reaper"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/repomanager"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/grpc"
	hs "github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/http"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics

	credentials *services.CredentialService
	reaper      *reaper.Reaper

	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(registry)

	opts, err := app.optionalComponents(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	tokens := auth.NewTokenService([]byte(c.SecretKey), c.TokenIssuer, c.TokenValidity)
	hasher := cryptox.NewArgon2Hasher(cryptox.DefaultParams)

	app.credentials = services.NewCredentialService(db, rm, tokens, hasher, c, logger, opts...)
	app.reaper = reaper.NewReaper(db, rm, c.OTPSweepSchedule, c.ResetSweepSchedule, logger, app.metrics)

	return app, nil
}

// optionalComponents connects the backends that are configured. Missing
// ones fall back to the service defaults.
func (app *App) optionalComponents(ctx context.Context) ([]services.Option, error) {
	c := app.config
	opts := []services.Option{services.WithMetrics(app.metrics)}

	if c.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, c.RedisAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client)
		opts = append(opts, services.WithLimiter(
			ratelimit.NewAttemptLimiter(client, "", c.OTPMaxAttempts, c.OTPAttemptWindow)))
		app.logger.Info(ctx, "OTP attempt limiter enabled", "redis", c.RedisAddr)
	}

	if c.RabbitMQURL != "" {
		n, err := notify.DialRabbitMQ(c.RabbitMQURL, c.NotificationQueue)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq init error: %w", err)
		}
		app.closers = append(app.closers, n)
		opts = append(opts, services.WithNotifier(n))
		app.logger.Info(ctx, "notifications queued", "queue", c.NotificationQueue)
	}

	if len(c.KafkaBrokers) > 0 {
		p := events.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
		app.closers = append(app.closers, p)
		opts = append(opts, services.WithPublisher(p))
		app.logger.Info(ctx, "identity events enabled", "topic", c.KafkaTopic)
	}

	return opts, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runComponent runs one blocking component; its failure stops the others.
func (app *App) runComponent(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	httpServer := hs.NewHTTPServer(app.config.HTTPAddr, app.logger, app.credentials, app.metrics, app.config.ShutdownTimeout)
	grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.credentials)

	var wg sync.WaitGroup

	for name, run := range map[string]func(context.Context) error{
		"http":   httpServer.Run,
		"grpc":   grpcServer.Run,
		"reaper": app.reaper.Start,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runComponent(ctx, cancelFunc, name, run)
		}()
	}

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}
