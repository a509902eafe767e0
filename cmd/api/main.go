package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/api"
	"github.com/resilienthubs/booking-engine/internal/api/handler"
	"github.com/resilienthubs/booking-engine/internal/api/middleware"
	"github.com/resilienthubs/booking-engine/internal/application"
	"github.com/resilienthubs/booking-engine/internal/config"
	"github.com/resilienthubs/booking-engine/internal/domain/slot"
	"github.com/resilienthubs/booking-engine/internal/infrastructure/postgres"
	redisinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/redis"
	stripeinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/stripe"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
	"github.com/resilienthubs/booking-engine/internal/pkg/metrics"
	"github.com/resilienthubs/booking-engine/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.App.Env)
	logger.Set(log)
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(db.DB, log); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := redisinfra.NewClient(&cfg.Redis)
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisinfra.Ping(ctx, rdb)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	lockManager := redisinfra.NewLockManager(rdb, cfg.Booking.SlotLockTTL, m)
	availabilityCache := redisinfra.NewAvailabilityCache(rdb, m)

	availabilityRepo := postgres.NewAvailabilityRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	eventRepo := postgres.NewPaymentEventRepository(db)
	txManager := postgres.NewTxManager(db)

	gateway := stripeinfra.NewGateway(cfg.Stripe, log)
	if !cfg.Stripe.Enabled() {
		logger.Warn("STRIPE_SECRET_KEY is not set; paid bookings are disabled")
	}

	computer := slot.NewComputer(nil, cfg.Booking.MinimumNotice)
	availabilityService := application.NewAvailabilityService(availabilityRepo, bookingRepo, computer, availabilityCache, cfg.Booking.CacheTTL)
	bookingService := application.NewBookingService(txManager, bookingRepo, availabilityService, gateway, lockManager, m, cfg.Booking.PaymentWindow)
	webhookService := application.NewWebhookService(txManager, gateway, bookingRepo, eventRepo, availabilityService, m)
	exportService := application.NewExportService(bookingRepo)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	handler.RegisterRoutes(e, handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(func(ctx context.Context) error { return postgres.Ping(ctx, db) }),
			"redis":    handler.PingFunc(func(ctx context.Context) error { return redisinfra.Ping(ctx, rdb) }),
		}),
		Availability:      handler.NewAvailabilityHandler(availabilityService),
		Booking:           handler.NewBookingHandler(bookingService),
		Webhook:           handler.NewWebhookHandler(webhookService),
		AdminAvailability: handler.NewAdminAvailabilityHandler(availabilityService),
		AdminBooking:      handler.NewAdminBookingHandler(bookingService, exportService),
	}, middleware.RateLimit(cfg.RateLimit), middleware.AdminAuth(cfg.Admin.JWTSecret))

	sweeper := worker.NewExpiredBookingSweeper(bookingService, cfg.Booking.SweepInterval, cfg.Booking.SweepGrace)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	stopWorker()
	sweeper.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
