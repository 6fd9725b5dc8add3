package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/config"
	"github.com/juani-castore/mozo-prototipo/internal/database"
	"github.com/juani-castore/mozo-prototipo/internal/infrastructure/payment"
	"github.com/juani-castore/mozo-prototipo/internal/logging"
	"github.com/juani-castore/mozo-prototipo/internal/metrics"
	"github.com/juani-castore/mozo-prototipo/internal/repo"
	"github.com/juani-castore/mozo-prototipo/internal/server"
	"github.com/juani-castore/mozo-prototipo/internal/service"
	"github.com/juani-castore/mozo-prototipo/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database_open_failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate_failed", zap.Error(err))
	}
	if err := database.Seed(ctx, db); err != nil {
		logger.Fatal("seed_failed", zap.Error(err))
	}

	var gateway payment.PaymentGateway
	if cfg.GatewayToken == "" {
		logger.Warn("gateway_token_missing_using_mock")
		gateway = payment.NewMockGateway()
	} else {
		gateway = payment.NewMercadoPagoGateway(cfg.GatewayBaseURL, cfg.GatewayToken, cfg.GatewayTimeout)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	orderRepo := repo.NewOrderRepo(db)
	pendingRepo := repo.NewPendingOrderRepo(db)
	productRepo := repo.NewProductRepo(db)

	inventory := service.NewInventoryService(productRepo, m, logger)
	admission := service.NewAdmissionService(db, orderRepo, pendingRepo, gateway, inventory, m, logger)
	notificationURL := cfg.StorefrontBaseURL + "/payment-webhook"
	checkout := service.NewCheckoutService(productRepo, pendingRepo, gateway, cfg.StorefrontBaseURL, notificationURL, m, logger)

	sweeper := worker.NewSweeper(pendingRepo, gateway, admission, cfg.PendingTTL, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	srv := server.New(admission, checkout, database.NewService(db), cfg.AllowedOrigins, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
