package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"breakerkit/internal/config"
	hhttp "breakerkit/internal/handler/http"
	"breakerkit/internal/handler/http/requestid"
	"breakerkit/internal/infra/cache"
	"breakerkit/internal/infra/db"
	"breakerkit/internal/infra/llm"
	"breakerkit/internal/infra/sqlguard"
	"breakerkit/internal/infra/vectorstore"
	"breakerkit/internal/infra/webhook"
	igrpc "breakerkit/internal/interface/grpc"
	"breakerkit/internal/notify"
	"breakerkit/internal/observability/logging"
	"breakerkit/internal/observability/tracing"
	"breakerkit/internal/probe"
	"breakerkit/pkg/breaker"
)

func main() {
	logger := initLogger()

	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := breaker.NewPrometheusMetrics()
	registry, err := cfg.Registry(metrics)
	if err != nil {
		logger.Error("failed to build breaker registry", slog.Any("error", err))
		os.Exit(1)
	}

	components, err := setup(logger, cfg, registry, metrics)
	if err != nil {
		logger.Error("failed to set up server", slog.Any("error", err))
		os.Exit(1)
	}
	defer components.close(logger)

	runServer(logger, cfg, components)
}

// initLogger initializes the process-wide structured logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// serverComponents holds everything runServer needs to start and stop.
type serverComponents struct {
	handler  http.Handler
	grpcSrv  *grpc.Server
	prober   *probe.Prober
	watcher  *notify.Watcher
	database *sql.DB
	redis    *redis.Client
}

func (c *serverComponents) close(logger *slog.Logger) {
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}
}

// setup wires the admin surface, the gRPC health service, and the optional
// guarded clients. Database and cache guards attach only when their
// connection settings are present in the environment, so a bare breakerd
// still serves the registry for breakers created by embedding applications.
func setup(logger *slog.Logger, cfg *config.Config, registry *breaker.Registry, metrics *breaker.PrometheusMetrics) (*serverComponents, error) {
	components := &serverComponents{}

	var prober *probe.Prober
	if cfg.Probe.Enabled {
		p, err := probe.New(registry, probe.Config{
			Schedule:      cfg.Probe.Schedule,
			Timezone:      cfg.Probe.Timezone,
			Timeout:       cfg.Probe.Timeout,
			MaxConcurrent: cfg.Probe.MaxConcurrent,
		})
		if err != nil {
			return nil, err
		}
		prober = p
		components.prober = p
	}

	if os.Getenv("DATABASE_URL") != "" {
		database := db.Open()
		components.database = database

		guard, err := sqlguard.New(registry, database)
		if err != nil {
			return nil, err
		}
		if prober != nil {
			prober.Register(guard.Breaker().Name(), guard.PingContext)
		}
		logger.Info("database guard attached")

		// The vector store shares the connection pool but trips on its own
		// circuit, so slow similarity searches cannot open the database
		// breaker.
		store, err := vectorstore.New(registry, database)
		if err != nil {
			return nil, err
		}
		if prober != nil {
			prober.Register(vectorstore.Circuit, store.Ping)
		}
		logger.Info("vector store guard attached")
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		if _, err := llm.NewAnthropic(key, registry); err != nil {
			return nil, err
		}
		logger.Info("anthropic circuit registered")
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if _, err := llm.NewOpenAI(key, registry, llm.DefaultOpenAIConfig()); err != nil {
			return nil, err
		}
		logger.Info("openai circuit registered")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		components.redis = client

		c, err := cache.New(registry, client)
		if err != nil {
			return nil, err
		}
		if prober != nil {
			prober.Register(cache.Circuit, c.Ping)
		}
		logger.Info("cache guard attached", slog.String("addr", addr))
	}

	if cfg.Webhook.Enabled {
		sender, err := webhook.NewSender(registry, webhook.Config{
			URL:               cfg.Webhook.URL,
			Timeout:           cfg.Webhook.Timeout,
			RequestsPerSecond: cfg.Webhook.RequestsPerSecond,
			Burst:             cfg.Webhook.Burst,
		})
		if err != nil {
			return nil, err
		}
		components.watcher = notify.NewWatcher(registry, sender, notify.DefaultInterval)
		logger.Info("state change notifications enabled", slog.String("url", cfg.Webhook.URL))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", &hhttp.HealthHandler{Registry: registry, Version: getVersion()})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	breakerHandler := &hhttp.BreakerHandler{Registry: registry}
	breakerHandler.Register(mux)

	var handler http.Handler = mux
	handler = tracing.Middleware(handler)
	handler = hhttp.Logging(logger)(handler)
	handler = requestid.Middleware(handler)
	handler = hhttp.Recover(logger)(handler)
	components.handler = handler

	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, igrpc.NewHealthServer(registry))
	components.grpcSrv = grpcSrv

	return components, nil
}

func runServer(logger *slog.Logger, cfg *config.Config, components *serverComponents) {
	// Context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.watcher != nil {
		go components.watcher.Run(ctx)
	}

	if components.prober != nil {
		if err := components.prober.Start(); err != nil {
			logger.Error("failed to start recovery prober", slog.Any("error", err))
			os.Exit(1)
		}
		defer components.prober.Stop()
		logger.Info("recovery prober started", slog.String("schedule", cfg.Probe.Schedule))
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		logger.Info("gRPC health service starting", slog.String("addr", cfg.Server.GRPCAddr))
		if err := components.grpcSrv.Serve(grpcLis); err != nil {
			logger.Error("gRPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.AdminAddr,
		Handler:           components.handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("admin server starting",
			slog.String("addr", cfg.Server.AdminAddr),
			slog.String("version", getVersion()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")

	// Stop the state change watcher and any in-flight request contexts
	cancel()

	components.grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
