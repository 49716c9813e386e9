package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := log.Setup(log.ComponentServer)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The export queue is optional; without it writes stay local-only and
	// the backfill scan in ledger-worker picks them up later.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without live export", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	categories := services.NewCategoryService(repo)
	transactions := services.NewTransactionService(repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, repo, categories, transactions, cfg.RateLimitPerMinute)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting ledgerd", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
