// Package worker syncs committed transactions from the local store to the
// configured export sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/export"
	"ledger/internal/storage"
)

// ExportWorker consumes queue messages and appends transaction rows to the
// export sink. A periodic backfill scan re-exports rows whose messages were
// lost.
type ExportWorker struct {
	storage   *storage.Repository
	exporter  export.Exporter
	batchSize int
}

func NewExportWorker(storage *storage.Repository, exporter export.Exporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches one queue message. Returning an error requeues
// the message.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	switch msg.Type {
	case amqp.MessageTypeSync:
		return w.handleSync(ctx, msg.ID)
	case amqp.MessageTypeDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		// Unknown types are dropped, not requeued; requeueing would loop
		// forever.
		slog.WarnContext(ctx, "Dropping message of unknown type",
			"type", msg.Type, "id", msg.ID)
		return nil
	}
}

func (w *ExportWorker) handleSync(ctx context.Context, id int64) error {
	slog.InfoContext(ctx, "Processing sync message", "id", id)

	t, err := w.storage.GetTransactionForExport(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and consume; the delete message follows.
		slog.InfoContext(ctx, "Transaction gone before export, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction for export: %w", err)
	}

	return w.exportTransaction(ctx, t)
}

func (w *ExportWorker) handleDelete(ctx context.Context, id int64) error {
	slog.InfoContext(ctx, "Processing delete message", "id", id)

	if err := w.exporter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exported row: %w", err)
	}
	return nil
}

// ProcessPending re-exports rows whose sync messages were lost. This is the
// backup mechanism behind the queue.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupCheck drains a larger pending batch once at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup export check")
	return w.processPendingBatch(ctx, w.batchSize*5)
}

func (w *ExportWorker) processPendingBatch(ctx context.Context, batchSize int) error {
	pending, err := w.storage.ListPendingExport(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		t, err := w.storage.GetTransactionForExport(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction",
				"id", p.ID, "error", err)
			w.markError(ctx, p.ID)
			failed++
			continue
		}

		if err := w.exportTransaction(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending export pass complete",
		"total", len(pending), "exported", exported, "errors", failed)
	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, t storage.ExportTransaction) error {
	id := t.Transaction.ID

	if err := w.exporter.Append(ctx, t); err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("append to export sink: %w", err)
	}

	// Guarded by version: an edit that landed while we exported keeps the
	// row pending.
	if err := w.storage.MarkSynced(ctx, id, t.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		// The export itself worked; don't requeue.
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", id,
		"version", t.Version,
		"amount_cents", t.Transaction.Amount.Cents,
		"category", t.CategoryName)
	return nil
}

func (w *ExportWorker) markError(ctx context.Context, id int64) {
	if err := w.storage.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
	}
}
