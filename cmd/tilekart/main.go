package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tilekart/tilekart/internal/app"
	"github.com/tilekart/tilekart/internal/auth"
	"github.com/tilekart/tilekart/internal/billing"
	"github.com/tilekart/tilekart/internal/delivery"
	"github.com/tilekart/tilekart/internal/expenses"
	"github.com/tilekart/tilekart/internal/masterdata/customers"
	"github.com/tilekart/tilekart/internal/masterdata/products"
	"github.com/tilekart/tilekart/internal/masterdata/suppliers"
	"github.com/tilekart/tilekart/internal/observability"
	"github.com/tilekart/tilekart/internal/platform/cache"
	"github.com/tilekart/tilekart/internal/platform/db"
	"github.com/tilekart/tilekart/internal/procurement"
	"github.com/tilekart/tilekart/internal/security"
	"github.com/tilekart/tilekart/internal/shared"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "tilekart_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool, logger)
	staleNotifier := shared.NewStaleNotifier(redisClient, logger)
	metrics := observability.NewMetrics()

	customerRepo := customers.NewRepository(pool)
	supplierRepo := suppliers.NewRepository(pool)
	productRepo := products.NewRepository(pool)

	securityRepo := security.NewRepository(pool)
	securityService := security.NewService(securityRepo, logger)
	loginLimiter := security.NewRateLimiter(redisClient, securityRepo, 5, 15*time.Minute, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, loginLimiter, auditLogger, logger)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, customerRepo, productRepo, auditLogger, staleNotifier, logger)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, supplierRepo, productRepo, auditLogger, staleNotifier, logger)

	deliveryRepo := delivery.NewRepository(pool)
	deliveryService := delivery.NewService(deliveryRepo, customerRepo, productRepo, auditLogger, staleNotifier, logger)

	expenseRepo := expenses.NewRepository(pool)
	expenseService := expenses.NewService(expenseRepo, auditLogger, staleNotifier, logger)

	router := app.NewRouter(app.RouterParams{
		Middleware: app.MiddlewareConfig{
			Logger:         logger,
			Config:         cfg,
			SessionManager: sessionManager,
			CSRFManager:    csrfManager,
			Metrics:        metrics,
		},
		Metrics:     metrics,
		Auth:        auth.NewHandler(logger, authService, sessionManager, csrfManager),
		Billing:     billing.NewHandler(logger, billingService),
		Procurement: procurement.NewHandler(logger, procurementService),
		Delivery:    delivery.NewHandler(logger, deliveryService),
		Expenses:    expenses.NewHandler(logger, expenseService),
		Customers:   customers.NewHandler(logger, customerRepo),
		Suppliers:   suppliers.NewHandler(logger, supplierRepo),
		Products:    products.NewHandler(logger, productRepo),
		Security:    security.NewHandler(logger, securityService),
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("server stopped")
}
