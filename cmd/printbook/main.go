// Package main запускает HTTP-сервер сервиса печати книг.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastprintguys/printbook-system/internal/config"
	"github.com/fastprintguys/printbook-system/internal/handler"
	"github.com/fastprintguys/printbook-system/internal/middleware"
	"github.com/fastprintguys/printbook-system/internal/paypal"
	"github.com/fastprintguys/printbook-system/internal/repository"
	"github.com/fastprintguys/printbook-system/internal/service"
	"github.com/fastprintguys/printbook-system/internal/storage"
	"github.com/fastprintguys/printbook-system/internal/stripe"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		sugar.Fatalw("file storage initialization error", "error", err.Error())
	}

	var stripeClient *stripe.Client
	if cfg.StripeSecretKey != "" {
		stripeClient = stripe.NewClient(cfg.StripeAPIBase, cfg.StripeSecretKey, cfg.Currency, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	}

	var paypalClient *paypal.Client
	if cfg.PayPalClientID != "" {
		paypalClient = paypal.NewClient(cfg.PayPalAPIBase, cfg.PayPalClientID, cfg.PayPalClientSecret)
	}

	svc := service.NewService(repo, files, stripeClient, paypalClient, cfg.PayPalReturnURL, cfg.PayPalCancelURL)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting printbook server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
