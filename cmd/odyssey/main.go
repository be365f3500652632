package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/events"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/orders"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/registers"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

const producerName = "odyssey-pos"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, producerName)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis only backs the payment-method cache and the job queue; the API
	// keeps serving from Postgres when it is down.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, payment method cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.PublishingEnabled() {
		kafkaPublisher := events.NewKafkaPublisher(logger, producerName, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaBufferSize)
		kafkaPublisher.Start()
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	ticketer, err := sales.NewTicketer(sales.TicketConfig{
		BusinessName: cfg.TicketBusinessName,
		Locale:       cfg.TicketLocale,
		Currency:     cfg.TicketCurrency,
		Timezone:     cfg.TicketTimezone,
		Secret:       cfg.TicketSecret,
	})
	if err != nil {
		logger.Error("init ticketer", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	inventoryRepo := inventory.NewRepository(dbpool)
	registersRepo := registers.NewRepository(dbpool)
	methodsRepo := paymentmethods.NewRepository(dbpool)
	methodResolver := paymentmethods.NewResolver(redisClient, cfg.PaymentMethodCacheTTL, methodsRepo)

	ordersService := orders.NewService(orders.NewRepository(dbpool), catalogRepo, logger)
	ordersService.SetIdempotency(idempotencyStore)
	ordersService.SetAudit(auditLogger)
	ordersService.SetPublisher(publisher)
	ordersService.SetMetrics(metrics)

	salesService := sales.NewService(sales.NewRepository(dbpool), sales.Deps{
		Registers:  registersRepo,
		Warehouses: inventoryRepo,
		Stock:      inventoryRepo,
		Pricing:    catalogRepo,
		Kinds:      methodResolver,
	}, logger)
	salesService.SetIdempotency(idempotencyStore)
	salesService.SetAudit(auditLogger)
	salesService.SetPublisher(publisher)
	salesService.SetMetrics(metrics)
	salesService.SetTicketer(ticketer)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	probes := map[string]app.Probe{
		"postgres": dbpool.Ping,
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisPing(ctx, redisClient) }
	}

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		OrdersHandler:         orders.NewHandler(logger, ordersService),
		SalesHandler:          sales.NewHandler(logger, salesService),
		RegistersHandler:      registers.NewHandler(logger, registers.NewService(registersRepo)),
		InventoryHandler:      inventory.NewHandler(logger, inventoryRepo),
		PaymentMethodsHandler: paymentmethods.NewHandler(logger, methodsRepo, methodResolver),
		JobHandler:            jobs.NewHandler(inspector, jobClient, cfg.IdempotencyRetention, logger),
		Metrics:               metrics,
		Probes:                probes,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func redisPing(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
