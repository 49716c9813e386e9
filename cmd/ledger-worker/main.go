package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/export"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := log.Setup(log.ComponentExportWorker)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	exporter, err := export.New(ctx, export.Sink(cfg.ExportSink))
	if err != nil {
		logger.Error("Failed to initialize export sink", "error", err, "sink", cfg.ExportSink)
		return
	}
	logger.Info("Export sink initialized", "sink", cfg.ExportSink)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		return
	}
	defer amqpClient.Close()

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	// Catch up on rows whose messages were lost while the worker was down.
	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.Consume(gctx, func(msg *amqp.TransactionMessage) error {
			return w.HandleMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(gctx); err != nil {
					logger.Error("Periodic export pass failed", "error", err)
				}
			}
		}
	})

	logger.Info("Export worker running",
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.ExportBatchSize,
		"interval", cfg.ExportInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		return
	}
	<-done
}
