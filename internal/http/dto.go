package http

import (
	"time"

	"ledger/internal/core"
)

type categoryResponse struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	Name      string         `json:"name"`
	Type      core.EntryType `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Type:      c.Type,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type transactionResponse struct {
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

func toTransactionResponse(t core.Transaction) transactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
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

type summaryResponse struct {
	TotalIncome  core.Money `json:"totalIncome"`
	TotalExpense core.Money `json:"totalExpense"`
	Balance      core.Money `json:"balance"`
}

func toSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Balance:      s.Balance,
	}
}

type spendingRowResponse struct {
	CategoryName string         `json:"categoryName"`
	CategoryType core.EntryType `json:"categoryType"`
	TotalAmount  core.Money     `json:"totalAmount"`
}

func toSpendingResponse(rows []core.CategorySpend) []spendingRowResponse {
	out := make([]spendingRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, spendingRowResponse{
			CategoryName: row.CategoryName,
			CategoryType: row.CategoryType,
			TotalAmount:  row.TotalAmount,
		})
	}
	return out
}
