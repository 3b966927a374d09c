package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	jwttoken "multisig/internal/jwt_token"
	"multisig/internal/multisig/executor"
	"multisig/internal/multisig/handler"
	msmetrics "multisig/internal/multisig/metrics"
	"multisig/internal/multisig/service"
	proposalstore "multisig/internal/multisig/store/proposal"
	registrystore "multisig/internal/multisig/store/registry"
	"multisig/internal/platform/config"
	"multisig/internal/platform/httpserver"
	"multisig/internal/platform/kafka"
	"multisig/internal/platform/logger"
	"multisig/internal/platform/metrics"
	"multisig/internal/platform/otel"
	"multisig/internal/platform/postgres"
	"multisig/internal/platform/redis"
	audit "multisig/pkg/platform/audit"
	"multisig/pkg/platform/audit/publisher"
	kafkasink "multisig/pkg/platform/audit/store/kafka"
	auditmemory "multisig/pkg/platform/audit/store/memory"
	"multisig/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, cfg.OTelEndpoint, "multisig")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	health := map[string]healthCheck{}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, registrystore.Schema, proposalstore.Schema); err != nil {
			return err
		}
		health["postgres"] = db.PingContext
	}

	var registries service.RegistryStore = registrystore.NewInMemory()
	if db != nil {
		registries = registrystore.NewPostgres(db)
	}

	var proposals service.ProposalStore
	switch cfg.ProposalBackend {
	case config.BackendPostgres:
		proposals = proposalstore.NewPostgres(db)
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		health["redis"] = client.Health
		proposals = proposalstore.NewRedis(client.Client, proposalstore.WithLockTTL(cfg.Redis.LockTTL))
	default:
		proposals = proposalstore.NewInMemory()
	}

	sink, closeSink, err := auditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	auditPublisher := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	svc := service.New(registries, proposals, invoker(cfg, log),
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(msmetrics.New()),
	)

	jwtService := jwttoken.NewJWTService(cfg.IdentityJWTKey, cfg.IdentityIssuer, cfg.IdentityAudience)
	router := newRouter(routerDeps{
		logger:  log,
		handler: handler.New(svc, log),
		callers: jwttoken.NewCallerValidatorAdapter(jwtService),
		metrics: metrics.New(),
		health:  health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting multisig", "addr", cfg.Addr, "proposal_store", cfg.ProposalBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// auditSink returns the Kafka sink when brokers are configured and an
// in-memory store otherwise.
func auditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	client, err := kafka.New(ctx, cfg.KafkaBrokers, "multisig")
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("audit events kept in memory; set KAFKA_BROKERS to publish")
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	sink := kafkasink.NewSink(client, cfg.KafkaAuditTopic)
	if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	return sink, client.Close, nil
}

func invoker(cfg config.Server, log *slog.Logger) service.Invoker {
	if cfg.ExecutionHostURL != "" {
		return executor.NewHTTPHost(cfg.ExecutionHostURL,
			executor.WithHTTPClient(&http.Client{Timeout: cfg.ExecutionTimeout}),
			executor.WithBreaker(circuit.New("execution-host")))
	}
	log.Warn("EXECUTION_HOST_URL not set; executions are logged and not performed")
	return executor.Func(func(ctx context.Context, inv executor.Invocation) error {
		log.InfoContext(ctx, "execution host stub",
			"proposal_id", inv.ProposalID,
			"authority", inv.Authority,
			"resources", len(inv.Resources),
		)
		return nil
	})
}
