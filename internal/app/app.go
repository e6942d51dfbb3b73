// Package app wires the storefront's dependency graph and runs the server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/delali3/era-store-sub002/internal/address"
	"github.com/delali3/era-store-sub002/internal/cart"
	"github.com/delali3/era-store-sub002/internal/checkout"
	"github.com/delali3/era-store-sub002/internal/config"
	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	handler "github.com/delali3/era-store-sub002/internal/handler/http"
	"github.com/delali3/era-store-sub002/internal/inventory"
	"github.com/delali3/era-store-sub002/internal/payment"
	postgresrepo "github.com/delali3/era-store-sub002/internal/repository/postgres"
	redisrepo "github.com/delali3/era-store-sub002/internal/repository/redis"
	"github.com/delali3/era-store-sub002/internal/wishlist"
	"github.com/delali3/era-store-sub002/pkg/database"
	"github.com/delali3/era-store-sub002/pkg/health"
	"github.com/delali3/era-store-sub002/pkg/httpclient"
	pkgkafka "github.com/delali3/era-store-sub002/pkg/kafka"
	"github.com/delali3/era-store-sub002/pkg/middleware"
	"github.com/delali3/era-store-sub002/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server

	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "storefront",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	rdb, err := database.NewRedisClient(ctx, &database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr()),
		slog.Int("db", cfg.RedisDB),
	)

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	eventProducer := event.NewProducer(producer, logger)

	// Downstream HTTP clients are wrapped in per-collaborator circuit
	// breakers so an unhealthy dependency fails fast instead of tying up
	// request goroutines.
	baseClient := httpclient.New(httpclient.DefaultConfig())
	cbConfig := httpclient.CircuitBreakerConfig{
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}

	inventoryCB := cbConfig
	inventoryCB.Name = "inventory"
	inventoryClient := httpclient.NewCircuitBreakerClient(baseClient, inventoryCB, logger)
	inventoryGateway := inventory.NewHTTPGateway(inventoryClient, cfg.InventoryServiceURL, logger)

	cartTTL := time.Duration(cfg.CartTTLHours) * time.Hour
	cartRepo := redisrepo.NewCartRepository(rdb, cartTTL)
	wishlistRepo := redisrepo.NewWishlistRepository(rdb, cartTTL)
	addressRepo := postgresrepo.NewAddressRepository(pool)
	orderRepo := postgresrepo.NewOrderRepository(pool)

	cartService := cart.NewService(cartRepo, inventoryGateway, eventProducer, logger, cfg.Currency)
	wishlistService := wishlist.NewService(wishlistRepo, eventProducer, logger)
	addressSelector := address.NewSelector(addressRepo, logger)

	var (
		paymentGateway payment.Gateway
		hostedGateway  *payment.HostedGateway
	)
	switch cfg.PaymentMode {
	case "sandbox":
		paymentGateway = payment.NewSandboxGateway(payment.Outcome(cfg.SandboxOutcome), "sandbox declined")
	default:
		paymentCB := cbConfig
		paymentCB.Name = "payment"
		paymentClient := httpclient.NewCircuitBreakerClient(baseClient, paymentCB, logger)
		hostedGateway = payment.NewHostedGateway(paymentClient, cfg.PaymentProviderURL, logger)
		paymentGateway = hostedGateway
	}

	// Validated at config load.
	shippingMethods, _ := cfg.ShippingCatalog()
	promoCodes, _ := cfg.PromoTable()

	orchestrator := checkout.NewOrchestrator(
		cartService,
		addressSelector,
		addressRepo,
		orderRepo,
		paymentGateway,
		eventProducer,
		logger,
		checkout.Config{
			Currency: cfg.Currency,
			Rules: domain.PricingRules{
				TaxRateBps:            cfg.TaxRateBps,
				FreeShippingThreshold: cfg.FreeShippingThreshold,
			},
			ShippingMethods: shippingMethods,
			PromoCodes:      promoCodes,
		},
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	router := handler.NewRouter(handler.RouterDeps{
		CartService:     cartService,
		WishlistService: wishlistService,
		AddressSelector: addressSelector,
		Orchestrator:    orchestrator,
		HostedGateway:   hostedGateway,
		HealthHandler:   healthHandler,
		TokenVerifier:   middleware.NewTokenVerifier(cfg.JWTSecret),
		Logger:          logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
