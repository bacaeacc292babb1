package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apporder "github.com/marketsquare/order-service/internal/application/order"
	"github.com/marketsquare/order-service/internal/config"
	domain "github.com/marketsquare/order-service/internal/domain/order"
	"github.com/marketsquare/order-service/internal/infrastructure/id"
	"github.com/marketsquare/order-service/internal/infrastructure/memory"
	"github.com/marketsquare/order-service/internal/infrastructure/observability/oteltrace"
	"github.com/marketsquare/order-service/internal/infrastructure/observability/prometrics"
	"github.com/marketsquare/order-service/internal/infrastructure/observability/telemetry"
	"github.com/marketsquare/order-service/internal/infrastructure/observability/zaplogger"
	"github.com/marketsquare/order-service/internal/infrastructure/postgres"
	"github.com/marketsquare/order-service/internal/infrastructure/remote"
	"github.com/marketsquare/order-service/internal/observability"
	httppresentation "github.com/marketsquare/order-service/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if s, ok := baseLogger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	metrics := telemetry.NewMetrics(prometrics.New("", ""))
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), baseLogger, metrics)

	repo, cleanup, err := newOrderRepository(cfg)
	if err != nil {
		baseLogger.Error("store_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	remoteCfg := remote.Config{
		AuthURL:                 cfg.AuthServiceURL,
		CartBaseURL:             cfg.CartServiceURL,
		ProductBaseURL:          cfg.ProductServiceURL,
		InternalAPIKey:          cfg.InternalAPIKey,
		Timeout:                 cfg.RemoteTimeout,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerWindow:           cfg.BreakerWindow,
		BreakerCooldown:         cfg.BreakerCooldown,
	}

	createOrder := apporder.NewCreateOrderUseCase(
		repo,
		remote.NewAuthGateway(remoteCfg, tel),
		remote.NewCartGateway(remoteCfg, tel),
		remote.NewProductGateway(remoteCfg, tel),
		id.NewUUIDGenerator(),
		tel,
	)
	getOrder := apporder.NewGetOrderUseCase(repo)

	handler := httppresentation.NewHandler(createOrder, getOrder, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// newOrderRepository selects the order store: postgres when DATABASE_URL is
// set, otherwise the in-memory store for local runs.
func newOrderRepository(cfg config.Config) (domain.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		return memory.NewOrderRepository(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}
