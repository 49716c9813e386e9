package storage

import (
	"context"
	"database/sql"
	"strings"

	"ledger/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query set runs
// inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const transactionColumns = `id, user_id, category_id, amount_cents, type, date, description, tags, version, synced, sync_error, created_at, updated_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.AmountCents, &t.Type, &t.Date,
		&t.Description, &t.Tags, &t.Version, &t.Synced, &t.SyncError,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

const recurringColumns = `id, user_id, category_id, amount_cents, type, description, every, start_date, end_date, last_execution_date, active, created_at, updated_at`

func scanRecurring(row interface{ Scan(dest ...any) error }) (RecurringTransactionRow, error) {
	var r RecurringTransactionRow
	err := row.Scan(
		&r.ID, &r.UserID, &r.CategoryID, &r.AmountCents, &r.Type, &r.Description,
		&r.Every, &r.StartDate, &r.EndDate, &r.LastExecutionDate, &r.Active,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// ---- users ----

const createUser = `
INSERT INTO users (email, password_hash)
VALUES (?, ?)
RETURNING id, email, password_hash, created_at
`

type CreateUserParams struct {
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, createUser, arg.Email, arg.PasswordHash).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password_hash, created_at FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUser = `
SELECT id, email, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUser, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// ---- categories ----

const createCategory = `
INSERT INTO categories (user_id, name, type)
VALUES (?, ?, ?)
RETURNING id, user_id, name, type, created_at, updated_at
`

type CreateCategoryParams struct {
	UserID int64
	Name   string
	Type   string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (CategoryRow, error) {
	var c CategoryRow
	err := q.db.QueryRowContext(ctx, createCategory, arg.UserID, arg.Name, arg.Type).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCategory = `
SELECT id, user_id, name, type, created_at, updated_at
FROM categories
WHERE id = ? AND user_id = ?
`

type GetCategoryParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetCategory(ctx context.Context, arg GetCategoryParams) (CategoryRow, error) {
	var c CategoryRow
	err := q.db.QueryRowContext(ctx, getCategory, arg.ID, arg.UserID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCategories = `
SELECT id, user_id, name, type, created_at, updated_at
FROM categories
WHERE user_id = ?
ORDER BY name ASC, id ASC
`

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `
UPDATE categories
SET name = ?, type = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?
RETURNING id, user_id, name, type, created_at, updated_at
`

type UpdateCategoryParams struct {
	ID     int64
	UserID int64
	Name   string
	Type   string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (CategoryRow, error) {
	var c CategoryRow
	err := q.db.QueryRowContext(ctx, updateCategory, arg.Name, arg.Type, arg.ID, arg.UserID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// clearCategoryRefs detaches a category from its transactions and bumps their
// version so the export worker re-syncs them without the stale name.
const clearCategoryRefs = `
UPDATE transactions
SET category_id = NULL,
    version = version + 1,
    synced = 0,
    sync_error = 0,
    updated_at = CURRENT_TIMESTAMP
WHERE category_id = ? AND user_id = ?
`

type ClearCategoryRefsParams struct {
	CategoryID int64
	UserID     int64
}

func (q *Queries) ClearCategoryRefs(ctx context.Context, arg ClearCategoryRefsParams) error {
	_, err := q.db.ExecContext(ctx, clearCategoryRefs, arg.CategoryID, arg.UserID)
	return err
}

const clearRecurringCategoryRefs = `
UPDATE recurring_transactions
SET category_id = NULL, updated_at = CURRENT_TIMESTAMP
WHERE category_id = ? AND user_id = ?
`

func (q *Queries) ClearRecurringCategoryRefs(ctx context.Context, arg ClearCategoryRefsParams) error {
	_, err := q.db.ExecContext(ctx, clearRecurringCategoryRefs, arg.CategoryID, arg.UserID)
	return err
}

const deleteCategory = `
DELETE FROM categories WHERE id = ? AND user_id = ?
`

type DeleteCategoryParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteCategory(ctx context.Context, arg DeleteCategoryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- transactions ----

const createTransaction = `
INSERT INTO transactions (user_id, category_id, amount_cents, type, date, description, tags)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	UserID      int64
	CategoryID  sql.NullInt64
	AmountCents int64
	Type        string
	Date        string
	Description sql.NullString
	Tags        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.CategoryID, arg.AmountCents, arg.Type, arg.Date, arg.Description, arg.Tags)
	return scanTransaction(row)
}

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ? AND user_id = ?
`

type GetTransactionParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetTransaction(ctx context.Context, arg GetTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, arg.ID, arg.UserID)
	return scanTransaction(row)
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter";
// CategoryID distinguishes nil (any) from a concrete category.
type TransactionFilter struct {
	UserID     int64
	StartDate  string
	EndDate    string
	CategoryID *int64
	Type       core.EntryType
	Limit      int
	Offset     int
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + transactionColumns + " FROM transactions WHERE user_id = ?")
	args := []any{f.UserID}

	if f.StartDate != "" {
		sb.WriteString(" AND date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		sb.WriteString(" AND date <= ?")
		args = append(args, f.EndDate)
	}
	if f.CategoryID != nil {
		sb.WriteString(" AND category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Type != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, string(f.Type))
	}
	sb.WriteString(" ORDER BY date DESC, created_at DESC, id DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	} else if f.Offset > 0 {
		// SQLite needs a LIMIT clause before OFFSET; -1 means unbounded.
		sb.WriteString(" LIMIT -1")
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTransaction = `
UPDATE transactions
SET category_id = ?,
    amount_cents = ?,
    type = ?,
    date = ?,
    description = ?,
    tags = ?,
    version = version + 1,
    synced = 0,
    sync_error = 0,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          int64
	UserID      int64
	CategoryID  sql.NullInt64
	AmountCents int64
	Type        string
	Date        string
	Description sql.NullString
	Tags        string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.CategoryID, arg.AmountCents, arg.Type, arg.Date, arg.Description, arg.Tags,
		arg.ID, arg.UserID)
	return scanTransaction(row)
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ? AND user_id = ?
`

type DeleteTransactionParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteTransaction(ctx context.Context, arg DeleteTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- reports ----

const getSummary = `
SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0) AS income_cents,
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0) AS expense_cents
FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?
`

type GetSummaryParams struct {
	UserID    int64
	StartDate string
	EndDate   string
}

func (q *Queries) GetSummary(ctx context.Context, arg GetSummaryParams) (SummaryRow, error) {
	var s SummaryRow
	err := q.db.QueryRowContext(ctx, getSummary, arg.UserID, arg.StartDate, arg.EndDate).
		Scan(&s.IncomeCents, &s.ExpenseCents)
	return s, err
}

const getSpendingByCategory = `
SELECT
    COALESCE(c.name, ?) AS category_name,
    COALESCE(c.type, 'expense') AS category_type,
    SUM(t.amount_cents) AS total_cents
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = ? AND t.type = 'expense' AND t.date >= ? AND t.date <= ?
GROUP BY t.category_id
ORDER BY total_cents DESC, category_name ASC
`

type GetSpendingByCategoryParams struct {
	UncategorizedName string
	UserID            int64
	StartDate         string
	EndDate           string
}

func (q *Queries) GetSpendingByCategory(ctx context.Context, arg GetSpendingByCategoryParams) ([]SpendingRow, error) {
	rows, err := q.db.QueryContext(ctx, getSpendingByCategory,
		arg.UncategorizedName, arg.UserID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SpendingRow
	for rows.Next() {
		var s SpendingRow
		if err := rows.Scan(&s.CategoryName, &s.CategoryType, &s.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ---- export queue ----

const listPendingExport = `
SELECT id, version, created_at
FROM transactions
WHERE synced = 0 AND sync_error = 0
ORDER BY created_at ASC, id ASC
LIMIT ?
`

func (q *Queries) ListPendingExport(ctx context.Context, limit int64) ([]PendingExportRow, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PendingExportRow
	for rows.Next() {
		var p PendingExportRow
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// markTransactionSynced guards on version so a sync confirmation for a stale
// copy never masks a newer unexported edit.
const markTransactionSynced = `
UPDATE transactions
SET synced = 1, sync_error = 0
WHERE id = ? AND version = ?
`

type MarkTransactionSyncedParams struct {
	ID      int64
	Version int64
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, arg MarkTransactionSyncedParams) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, arg.ID, arg.Version)
	return err
}

const markTransactionSyncError = `
UPDATE transactions SET sync_error = 1 WHERE id = ?
`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, id)
	return err
}

const getTransactionForExport = `
SELECT t.id, t.user_id, t.category_id, t.amount_cents, t.type, t.date, t.description, t.tags, t.version, t.synced, t.sync_error, t.created_at, t.updated_at,
       c.name AS category_name
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.id = ?
`

func (q *Queries) GetTransactionForExport(ctx context.Context, id int64) (ExportTransactionRow, error) {
	var e ExportTransactionRow
	err := q.db.QueryRowContext(ctx, getTransactionForExport, id).Scan(
		&e.ID, &e.UserID, &e.CategoryID, &e.AmountCents, &e.Type, &e.Date,
		&e.Description, &e.Tags, &e.Version, &e.Synced, &e.SyncError,
		&e.CreatedAt, &e.UpdatedAt, &e.CategoryName,
	)
	return e, err
}

// ---- recurring transactions ----

const createRecurring = `
INSERT INTO recurring_transactions (user_id, category_id, amount_cents, type, description, every, start_date, end_date, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + recurringColumns

type CreateRecurringParams struct {
	UserID      int64
	CategoryID  sql.NullInt64
	AmountCents int64
	Type        string
	Description string
	Every       string
	StartDate   string
	EndDate     sql.NullString
	Active      int64
}

func (q *Queries) CreateRecurring(ctx context.Context, arg CreateRecurringParams) (RecurringTransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createRecurring,
		arg.UserID, arg.CategoryID, arg.AmountCents, arg.Type, arg.Description,
		arg.Every, arg.StartDate, arg.EndDate, arg.Active)
	return scanRecurring(row)
}

const getRecurring = `
SELECT ` + recurringColumns + `
FROM recurring_transactions
WHERE id = ? AND user_id = ?
`

type GetRecurringParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetRecurring(ctx context.Context, arg GetRecurringParams) (RecurringTransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getRecurring, arg.ID, arg.UserID)
	return scanRecurring(row)
}

const listRecurring = `
SELECT ` + recurringColumns + `
FROM recurring_transactions
WHERE user_id = ?
ORDER BY id ASC
`

func (q *Queries) ListRecurring(ctx context.Context, userID int64) ([]RecurringTransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecurring, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecurringTransactionRow
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listActiveRecurring = `
SELECT ` + recurringColumns + `
FROM recurring_transactions
WHERE active = 1
ORDER BY id ASC
`

func (q *Queries) ListActiveRecurring(ctx context.Context) ([]RecurringTransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRecurring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecurringTransactionRow
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const setRecurringExecuted = `
UPDATE recurring_transactions
SET last_execution_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type SetRecurringExecutedParams struct {
	ID                int64
	LastExecutionDate sql.NullTime
}

func (q *Queries) SetRecurringExecuted(ctx context.Context, arg SetRecurringExecutedParams) error {
	_, err := q.db.ExecContext(ctx, setRecurringExecuted, arg.LastExecutionDate, arg.ID)
	return err
}

const setRecurringActive = `
UPDATE recurring_transactions
SET active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type SetRecurringActiveParams struct {
	ID     int64
	Active int64
}

func (q *Queries) SetRecurringActive(ctx context.Context, arg SetRecurringActiveParams) error {
	_, err := q.db.ExecContext(ctx, setRecurringActive, arg.Active, arg.ID)
	return err
}

const deleteRecurring = `
DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?
`

type DeleteRecurringParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteRecurring(ctx context.Context, arg DeleteRecurringParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecurring, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
