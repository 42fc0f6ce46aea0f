package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/address"
	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront BFF.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *goredis.Client
	producer       *pkgkafka.Producer
	registry       *session.Registry
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler(cfg.Version)

	// Visitor storage.
	var (
		rdb   *goredis.Client
		store storage.Store
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store = memory.NewStore()
		logger.Warn("visitor storage is in memory, carts and tokens are lost on restart")
	default:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err = database.NewRedisClient(ctx, redisCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("port", cfg.RedisPort),
			slog.Int("db", cfg.RedisDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, "storefront"); err != nil {
			logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
		}
		database.SetSlowCommandLogging(cfg.SlowCommandThreshold, logger)

		redisStore := redisstore.NewStore(rdb, cfg.VisitorTTL)
		healthHandler.Register("redis", redisStore.Ping)
		store = redisStore
	}

	// Kafka is optional; without brokers events are dropped.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = producer
		healthHandler.RegisterOptional("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, storefront events are disabled")
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Backend client with circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.BackendTimeout
	httpCfg.MaxRetries = cfg.BackendMaxRetries

	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "storefront-backend",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     cfg.CBInterval,
		Timeout:      cfg.CBTimeout,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.String("backend_url", cfg.BackendURL),
		slog.Duration("timeout", cbCfg.Timeout),
	)
	backendClient := backend.NewClient(cbClient, cfg.BackendURL)

	// Visitor sessions.
	registry := session.NewRegistry(session.Deps{
		Store:    store,
		Backend:  backendClient,
		Producer: eventProducer,
		Logger:   logger,
	}, sessionConfig(cfg))

	routerCfg := handler.DefaultRouterConfig()
	routerCfg.CORS.AllowedOrigins = cfg.CORSOrigins
	routerCfg.Visitor.Secure = cfg.SecureCookies
	routerCfg.RateLimitRPS = cfg.RateLimitRPS
	routerCfg.RateLimitBurst = cfg.RateLimitBurst
	routerCfg.RequestTimeout = cfg.RequestTimeout

	router := handler.NewRouter(registry, healthHandler, routerCfg, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		producer:       producer,
		registry:       registry,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.IdleTTL = cfg.SessionIdleTTL
	sc.SweepInterval = cfg.SessionSweepInterval
	sc.OriginPostalCode = cfg.OriginPostalCode
	sc.Address = address.Config{RefetchDelay: cfg.AddressRefetchDelay}
	sc.Payment = payment.Config{
		SessionTTL:           cfg.PaymentSessionTTL,
		ProviderMaxRetries:   cfg.PaymentMaxRetries,
		FailureReportTimeout: cfg.FailureReportTimeout,
	}
	sc.Pricing = checkout.PricingConfig{
		TaxBasisPoints:        cfg.TaxBasisPoints,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		Promos:                cfg.PromoCodes,
	}
	return sc
}

// Run starts the HTTP server and the idle-visitor sweeper, and blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.registry.Run(sweepCtx)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, pending
// payment failure reports, tracer, Kafka producer, Redis.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Failure reports run detached from requests; each is bounded by its
	// own timeout.
	a.registry.Wait()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
