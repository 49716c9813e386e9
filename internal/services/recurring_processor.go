package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// RecurringProcessor materializes due recurring templates into real
// transactions through the transaction service, so the export pipeline sees
// them like any other write.
type RecurringProcessor struct {
	storage      *storage.Repository
	transactions *TransactionService
}

func NewRecurringProcessor(storage *storage.Repository, transactions *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		transactions: transactions,
	}
}

// ProcessDue walks every active template and creates a transaction for each
// one that is due at now. Templates whose end date has passed are
// deactivated. Per-template failures are logged and skipped so one bad row
// never stalls the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.storage.ListActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	today := core.DateOf(now)
	processed := 0

	for _, rt := range templates {
		if today.Before(rt.StartDate.Time) {
			continue
		}

		if !rt.EndDate.IsZero() && today.After(rt.EndDate.Time) {
			if err := p.storage.SetRecurringActive(ctx, rt.ID, false); err != nil {
				slog.ErrorContext(ctx, "Failed to deactivate expired template",
					"id", rt.ID, "error", err)
			} else {
				slog.InfoContext(ctx, "Recurring template expired",
					"id", rt.ID, "end_date", rt.EndDate.String())
			}
			continue
		}

		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unknown repeat interval on template",
				"id", rt.ID, "every", rt.Every)
			continue
		}
		if !checker.IsDue(rt.LastExecutionDate, now, rt.StartDate) {
			continue
		}

		_, err = p.transactions.Create(ctx, core.Transaction{
			UserID:      rt.UserID,
			CategoryID:  rt.CategoryID,
			Amount:      rt.Amount,
			Type:        rt.Type,
			Date:        today,
			Description: rt.Description,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from template",
				"template_id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}

		if err := p.storage.MarkRecurringExecuted(ctx, rt.ID, now); err != nil {
			// The transaction exists; the template will fire again next
			// cycle unless this succeeds, so surface it loudly.
			slog.ErrorContext(ctx, "Failed to stamp last execution date",
				"template_id", rt.ID, "error", err)
			continue
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", rt.ID,
			"description", rt.Description,
			"amount_cents", rt.Amount.Cents,
			"every", rt.Every)
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}
