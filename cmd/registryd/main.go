// Command registryd serves the identity registry: the public HTTP API, the
// Postgres-backed stores, an optional Redis read cache, and an optional Kafka
// audit pipeline (outbox relay plus materializing consumer).
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"idregistry/internal/gate"
	gatehandler "idregistry/internal/gate/handler"
	httpapi "idregistry/internal/http"
	jwttoken "idregistry/internal/jwt_token"
	"idregistry/internal/platform/config"
	"idregistry/internal/platform/httpserver"
	kafkaadmin "idregistry/internal/platform/kafka/admin"
	kafkaconsumer "idregistry/internal/platform/kafka/consumer"
	kafkaproducer "idregistry/internal/platform/kafka/producer"
	"idregistry/internal/platform/logger"
	"idregistry/internal/platform/metrics"
	"idregistry/internal/platform/redis"
	"idregistry/internal/ratelimit"
	"idregistry/internal/recoveryproxy"
	proxyhandler "idregistry/internal/recoveryproxy/handler"
	registryhandler "idregistry/internal/registry/handler"
	registrymetrics "idregistry/internal/registry/metrics"
	registryservice "idregistry/internal/registry/service"
	registrystore "idregistry/internal/registry/store"
	"idregistry/internal/signature"
	"idregistry/internal/storage"
	"idregistry/pkg/domain"
	audit "idregistry/pkg/platform/audit"
	auditconsumer "idregistry/pkg/platform/audit/consumer"
	auditpublisher "idregistry/pkg/platform/audit/publisher"
	auditpg "idregistry/pkg/platform/audit/store/postgres"
	auditworker "idregistry/pkg/platform/audit/worker"
)

func main() {
	configPath := flag.String("config", "", "path to the registryd config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "registryd: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("registryd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	now := time.Now().UTC()

	identities := registrystore.NewPostgres(db)
	if err := identities.Seed(ctx); err != nil {
		return fmt.Errorf("seed allocation counter: %w", err)
	}
	gateStore := gate.NewPostgresStore(db)
	if err := gateStore.Seed(ctx, now); err != nil {
		return fmt.Errorf("seed gate state: %w", err)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditStore := auditpg.New(db)
	publisher := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	)
	defer publisher.Close()

	gates := gate.New(gateStore,
		gate.WithLogger(log),
		gate.WithAuditPublisher(publisher),
	)
	if err := seedTrustedCaller(ctx, gates, cfg.Registry.TrustedCaller); err != nil {
		return err
	}

	var identityStore registryservice.Store = identities
	if redisClient != nil {
		identityStore = registrystore.NewCached(identities, redisClient.Client, cfg.Redis.CacheTTL,
			registrystore.WithCacheLogger(log))
	}

	registry := registryservice.New(identityStore, signature.NewVerifier(), gates,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(publisher),
		registryservice.WithMetrics(registrymetrics.New()),
	)

	var proxyH *proxyhandler.Handler
	if cfg.Proxy.Address != "" {
		proxy, err := buildProxy(ctx, cfg.Proxy, db, registry, publisher, log, now)
		if err != nil {
			return err
		}
		proxyH = proxyhandler.New(proxy, log)
	}

	var limit *ratelimit.Middleware
	if limiter := ratelimit.NewMapLimiter(cfg.Registry.RatePerSecond, cfg.Registry.Burst, 0); limiter != nil {
		limit = ratelimit.New(limiter, log)
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:         log,
		Metrics:        metrics.NewHTTP(),
		TokenValidator: jwttoken.NewJWTService(cfg.Registry.TokenAudience),
		AdminToken:     cfg.Admin.Token,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      limit,
		Registry:       registryhandler.New(registry, log),
		Gate:           gatehandler.New(gates, identities, auditStore, log),
		Proxy:          proxyH,
		Healthz: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Health(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Server, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafkaadmin.EnsureTopics(ctx, cfg.Kafka, audit.Topics()...); err != nil {
			return fmt.Errorf("ensure kafka topics: %w", err)
		}

		producer, err := kafkaproducer.New(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()

		relay := auditworker.NewRelay(auditStore, producer, log,
			auditworker.WithInterval(cfg.Kafka.RelayInterval),
			auditworker.WithBatchSize(cfg.Kafka.RelayBatchSize),
			auditworker.WithMetrics(auditworker.NewMetrics()),
		)
		group.Go(func() error {
			return relay.Run(groupCtx)
		})

		materialize := auditconsumer.NewMaterializeHandler(auditStore, log)
		consumer, err := kafkaconsumer.New(cfg.Kafka, audit.Topics(), auditconsumer.NewRouter(log, materialize), log)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	err = group.Wait()
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("registryd stopped")
	return nil
}

// buildProxy stands up the hosted recovery proxy over its own persisted
// state. The configured controller only seeds the first start; a completed
// handoff in the store wins over configuration.
func buildProxy(ctx context.Context, cfg config.ProxyConfig, db *sql.DB, registry recoveryproxy.Recoverer, publisher recoveryproxy.AuditPublisher, log *slog.Logger, now time.Time) (*recoveryproxy.Service, error) {
	addr, err := domain.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("proxy address: %w", err)
	}
	controller, err := domain.ParseOptionalAddress(cfg.Controller)
	if err != nil {
		return nil, fmt.Errorf("proxy controller: %w", err)
	}
	store := recoveryproxy.NewPostgresStore(db)
	if err := store.Seed(ctx, controller, now); err != nil {
		return nil, fmt.Errorf("seed proxy state: %w", err)
	}
	return recoveryproxy.New(store, registry, addr,
		recoveryproxy.WithLogger(log),
		recoveryproxy.WithAuditPublisher(publisher),
	), nil
}

// seedTrustedCaller designates the configured bootstrap caller on first
// start. An existing designation, or a registry already opened, wins over
// configuration so restarts never undo an administrative change.
func seedTrustedCaller(ctx context.Context, gates *gate.Service, caller string) error {
	if caller == "" {
		return nil
	}
	addr, err := domain.ParseAddress(caller)
	if err != nil {
		return fmt.Errorf("trusted caller: %w", err)
	}
	state, err := gates.Status(ctx)
	if err != nil {
		return fmt.Errorf("gate status: %w", err)
	}
	if !state.TrustedOnly || !state.TrustedCaller.IsZero() {
		return nil
	}
	if err := gates.SetTrustedCaller(ctx, addr); err != nil {
		return fmt.Errorf("seed trusted caller: %w", err)
	}
	return nil
}
