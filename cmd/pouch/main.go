package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"pouch/internal/amqp"
	"pouch/internal/config"
	"pouch/internal/core"
	apphttp "pouch/internal/http"
	"pouch/internal/log"
	"pouch/internal/services"
	"pouch/internal/spending"
	"pouch/internal/storage"
)

func main() {
	// Load .env for local development, ignore errors in production.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.WithComponent(log.Setup(cfg.LogLevel), log.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it transaction writes still land in SQLite
	// and the sweeper picks them up later.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction mirroring deferred to the sweeper", log.FieldError, err)
			amqpClient = nil
		}
	}

	weekStart, err := cfg.WeekStartDay()
	if err != nil {
		logger.Error("Invalid week start", log.FieldError, err)
		os.Exit(1)
	}

	walletSvc := services.NewWalletService(repo)
	txSvc := services.NewTransactionService(repo, amqpClient)
	defer txSvc.Close()

	spendingSvc := spending.NewService(repo, repo, core.Calendar{WeekStart: weekStart}, time.Now)

	srv := apphttp.NewServer(":"+cfg.Port, repo, walletSvc, txSvc, spendingSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting pouch server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
