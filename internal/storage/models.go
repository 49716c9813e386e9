package storage

import (
	"database/sql"
	"time"
)

// Row types mirror the database schema one to one. The repository converts
// them to core types at the boundary.

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type CategoryRow struct {
	ID        int64
	UserID    int64
	Name      string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionRow struct {
	ID          int64
	UserID      int64
	CategoryID  sql.NullInt64
	AmountCents int64
	Type        string
	Date        string
	Description sql.NullString
	Tags        string
	Version     int64
	Synced      int64
	SyncError   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RecurringTransactionRow struct {
	ID                int64
	UserID            int64
	CategoryID        sql.NullInt64
	AmountCents       int64
	Type              string
	Description       string
	Every             string
	StartDate         string
	EndDate           sql.NullString
	LastExecutionDate sql.NullTime
	Active            int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PendingExportRow is the minimal data published to the sync queue.
type PendingExportRow struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// ExportTransactionRow joins a transaction with its category name for the
// spreadsheet exporter.
type ExportTransactionRow struct {
	TransactionRow
	CategoryName sql.NullString
}

type SummaryRow struct {
	IncomeCents  int64
	ExpenseCents int64
}

type SpendingRow struct {
	CategoryName string
	CategoryType string
	TotalCents   int64
}
