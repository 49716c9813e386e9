package main

import (
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := log.Setup(log.ComponentRecurringWorker)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Materialized transactions go through the transaction service so they
	// flow to the export queue like any other write.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without live export", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	transactions := services.NewTransactionService(repo, publisher)
	processor := services.NewRecurringProcessor(repo, transactions)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Recurring worker configured",
		"interval", cfg.RecurringInterval.String(), "db", cfg.SQLiteDBPath)

	// One pass at startup, then on the ticker.
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial recurring pass failed", "error", err)
	} else {
		logger.Info("Initial recurring pass complete", "transactions_created", count)
	}

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDue(ctx, now)
			if err != nil {
				logger.Error("Recurring pass failed", "error", err)
				continue
			}
			logger.Info("Recurring pass complete", "transactions_created", count)
		}
	}
}
