package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// SyncPublisher announces committed writes to the export queue. The local
// store is authoritative, so publish failures are logged and swallowed.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// TransactionService orchestrates transaction writes across the local store
// and the export queue.
type TransactionService struct {
	storage   *storage.Repository
	publisher SyncPublisher
}

// NewTransactionService wires the service. publisher may be nil when the
// deployment runs without an export pipeline (the CLI does this).
func NewTransactionService(storage *storage.Repository, publisher SyncPublisher) *TransactionService {
	return &TransactionService{storage: storage, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if res := core.ValidateTransaction(t); !res.Valid {
		return core.Transaction{}, res.Err()
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publishSync(ctx, created.ID, 1)
	return created, nil
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, f)
}

func (s *TransactionService) GetByID(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

// Update validates the merged shape first so invalid input never bumps the
// row version, then applies the partial update and re-queues the row.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, upd storage.TransactionUpdate) (core.Transaction, error) {
	existing, err := s.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if res := core.ValidateTransaction(mergeUpdate(existing, upd)); !res.Valid {
		return core.Transaction{}, res.Err()
	}

	updated, err := s.storage.UpdateTransaction(ctx, userID, id, upd)
	if err != nil {
		return core.Transaction{}, err
	}

	exp, err := s.storage.GetTransactionForExport(ctx, id)
	if err == nil {
		s.publishSync(ctx, id, exp.Version)
	}
	return updated, nil
}

func mergeUpdate(t core.Transaction, upd storage.TransactionUpdate) core.Transaction {
	if upd.CategoryID != nil {
		if upd.CategoryID.Valid {
			catID := upd.CategoryID.Int64
			t.CategoryID = &catID
		} else {
			t.CategoryID = nil
		}
	}
	if upd.Amount != nil {
		t.Amount = *upd.Amount
	}
	if upd.Type != nil {
		t.Type = *upd.Type
	}
	if upd.Date != nil {
		t.Date = *upd.Date
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Tags != nil {
		t.Tags = *upd.Tags
	}
	return t
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"id", id, "error", err)
		}
	}
	return nil
}

func (s *TransactionService) Summary(ctx context.Context, userID int64, start, end core.Date) (core.Summary, error) {
	if res := core.ValidateDateRange(start, end); !res.Valid {
		return core.Summary{}, res.Err()
	}
	return s.storage.Summary(ctx, userID, start, end)
}

func (s *TransactionService) SpendingByCategory(ctx context.Context, userID int64, start, end core.Date) ([]core.CategorySpend, error) {
	if res := core.ValidateDateRange(start, end); !res.Valid {
		return nil, res.Err()
	}
	return s.storage.SpendingByCategory(ctx, userID, start, end)
}

func (s *TransactionService) publishSync(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}
}
