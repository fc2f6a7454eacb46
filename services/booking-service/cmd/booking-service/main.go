package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/reservation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheck(context.Background(), os.Stderr))
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	lockTimeout, err := config.Duration("LOCK_TIMEOUT", reservation.DefaultLockTimeout)
	if err != nil {
		panic(err)
	}
	granularity, err := config.Int("SLOT_GRANULARITY_MINUTES", 30)
	if err != nil {
		panic(err)
	}

	backends, err := openStores(ctx, logger)
	if err != nil {
		logger.Error("store setup failed", "err", err)
		panic(err)
	}
	defer backends.close()

	rdb, err := openRedis(ctx)
	if err != nil {
		logger.Error("redis connection failed", "err", err)
		panic(err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	locker, err := newLocker(rdb, logger)
	if err != nil {
		panic(err)
	}

	registry := metrics.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	targets, closeTargets, err := notifyTargets(backends.catalog, logger)
	if err != nil {
		panic(err)
	}
	dispatcher := notify.NewDispatcher(logger, notify.DispatcherConfig{Observer: bookingMetrics}, targets...)
	defer func() {
		dispatcher.Close()
		closeTargets()
	}()

	schedule := calendar.New(backends.calendar)
	coordinator := reservation.New(reservation.Deps{
		Catalog:  backends.catalog,
		Store:    backends.appointments,
		Calendar: schedule,
		Locker:   locker,
		Notifier: dispatcher,
		Metrics:  bookingMetrics,
		Logger:   logger,
	}, reservation.Config{
		LockTimeout:               lockTimeout,
		DefaultGranularityMinutes: granularity,
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks(backends, rdb)...)
	mux.Handle("GET /metrics", metrics.Handler(registry))
	handlers.Register(mux,
		handlers.NewBookingHandler(coordinator, logger),
		handlers.NewScheduleHandler(schedule, logger),
	)

	limiter, err := newLimiter(rdb)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go serveHealthGRPC(ctx, logger, grpcPort)

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
