package cli

import (
	"time"

	"ledger/internal/core"
)

// JSON output mirrors the HTTP API field names.

type categoryOut struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	Name      string         `json:"name"`
	Type      core.EntryType `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toCategoryOut(c core.Category) categoryOut {
	return categoryOut{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Type:      c.Type,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type transactionOut struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"userId"`
	CategoryID  *int64         `json:"categoryId"`
	Amount      core.Money     `json:"amount"`
	Type        core.EntryType `json:"type"`
	Date        core.Date      `json:"date"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toTransactionOut(t core.Transaction) transactionOut {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionOut{
		ID:          t.ID,
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount,
		Type:        t.Type,
		Date:        t.Date,
		Description: t.Description,
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type summaryOut struct {
	TotalIncome  core.Money `json:"totalIncome"`
	TotalExpense core.Money `json:"totalExpense"`
	Balance      core.Money `json:"balance"`
}

type spendingOut struct {
	CategoryName string         `json:"categoryName"`
	CategoryType core.EntryType `json:"categoryType"`
	TotalAmount  core.Money     `json:"totalAmount"`
}

type recurringOut struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"userId"`
	CategoryID  *int64              `json:"categoryId"`
	Amount      core.Money          `json:"amount"`
	Type        core.EntryType      `json:"type"`
	Description string              `json:"description"`
	Every       core.RepeatInterval `json:"every"`
	StartDate   core.Date           `json:"startDate"`
	EndDate     core.Date           `json:"endDate"`
	Active      bool                `json:"active"`
}

func toRecurringOut(rt core.RecurringTransaction) recurringOut {
	return recurringOut{
		ID:          rt.ID,
		UserID:      rt.UserID,
		CategoryID:  rt.CategoryID,
		Amount:      rt.Amount,
		Type:        rt.Type,
		Description: rt.Description,
		Every:       rt.Every,
		StartDate:   rt.StartDate,
		EndDate:     rt.EndDate,
		Active:      rt.Active,
	}
}
