package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// RecurringService manages the templates the recurring worker materializes.
type RecurringService struct {
	storage        *storage.Repository
	allowPastStart bool
}

func NewRecurringService(storage *storage.Repository, allowPastStart bool) *RecurringService {
	return &RecurringService{storage: storage, allowPastStart: allowPastStart}
}

func (s *RecurringService) Create(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if res := core.ValidateRecurring(rt, s.allowPastStart, time.Now()); !res.Valid {
		return core.RecurringTransaction{}, res.Err()
	}

	created, err := s.storage.CreateRecurring(ctx, rt)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}
	return created, nil
}

func (s *RecurringService) List(ctx context.Context, userID int64) ([]core.RecurringTransaction, error) {
	return s.storage.ListRecurring(ctx, userID)
}

func (s *RecurringService) GetByID(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	return s.storage.GetRecurring(ctx, userID, id)
}

func (s *RecurringService) Delete(ctx context.Context, userID, id int64) error {
	return s.storage.DeleteRecurring(ctx, userID, id)
}
