package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound covers both "no such row" and "row owned by another user".
// Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection is still usable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx runs fn against a transaction-bound copy of the repository.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithinTx(ctx context.Context, fn func(*Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txRepo := &Repository{db: r.db, queries: r.queries.WithTx(tx)}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ---- users ----

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{Email: email, PasswordHash: passwordHash})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "email", u.Email)
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ---- categories ----

// CategoryUpdate carries the fields of a partial category update.
// Nil pointers leave the stored value unchanged.
type CategoryUpdate struct {
	Name *string
	Type *core.EntryType
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID: c.UserID,
		Name:   c.Name,
		Type:   string(c.Type),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created",
		"id", row.ID, "user_id", row.UserID, "name", row.Name, "type", row.Type)
	return categoryFromRow(row), nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, GetCategoryParams{ID: id, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return categoryFromRow(row), nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, categoryFromRow(row))
	}
	return categories, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, userID, id int64, upd CategoryUpdate) (core.Category, error) {
	var updated core.Category
	err := r.WithinTx(ctx, func(tx *Repository) error {
		existing, err := tx.GetCategory(ctx, userID, id)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			existing.Name = *upd.Name
		}
		if upd.Type != nil {
			existing.Type = *upd.Type
		}

		row, err := tx.queries.UpdateCategory(ctx, UpdateCategoryParams{
			ID:     id,
			UserID: userID,
			Name:   existing.Name,
			Type:   string(existing.Type),
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		updated = categoryFromRow(row)
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return updated, nil
}

// DeleteCategory detaches the category from its transactions and recurring
// templates, then removes it, all in one transaction.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id int64) error {
	return r.WithinTx(ctx, func(tx *Repository) error {
		refs := ClearCategoryRefsParams{CategoryID: id, UserID: userID}
		if err := tx.queries.ClearCategoryRefs(ctx, refs); err != nil {
			return fmt.Errorf("clear category refs: %w", err)
		}
		if err := tx.queries.ClearRecurringCategoryRefs(ctx, refs); err != nil {
			return fmt.Errorf("clear recurring category refs: %w", err)
		}

		rows, err := tx.queries.DeleteCategory(ctx, DeleteCategoryParams{ID: id, UserID: userID})
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}

		slog.InfoContext(ctx, "Category deleted", "id", id, "user_id", userID)
		return nil
	})
}

// ---- transactions ----

// TransactionUpdate carries the fields of a partial transaction update.
// Nil pointers leave the stored value unchanged. CategoryID distinguishes
// "unchanged" (nil) from "clear the category" (&sql.NullInt64{Valid: false}).
type TransactionUpdate struct {
	CategoryID  *sql.NullInt64
	Amount      *core.Money
	Type        *core.EntryType
	Date        *core.Date
	Description *string
	Tags        *[]string
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CategoryID != nil {
		if _, err := r.GetCategory(ctx, t.UserID, *t.CategoryID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return core.Transaction{}, fmt.Errorf("category %d: %w", *t.CategoryID, ErrNotFound)
			}
			return core.Transaction{}, err
		}
	}

	tags, err := encodeTags(t.Tags)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode tags: %w", err)
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      t.UserID,
		CategoryID:  nullableID(t.CategoryID),
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Date:        t.Date.String(),
		Description: nullableString(t.Description),
		Tags:        tags,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", row.ID,
		"user_id", row.UserID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"date", row.Date)
	return transactionFromRow(row)
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, GetTransactionParams{ID: id, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

func (r *Repository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	transactions := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id int64, upd TransactionUpdate) (core.Transaction, error) {
	var updated core.Transaction
	err := r.WithinTx(ctx, func(tx *Repository) error {
		existing, err := tx.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}

		if upd.CategoryID != nil {
			if upd.CategoryID.Valid {
				catID := upd.CategoryID.Int64
				if _, err := tx.GetCategory(ctx, userID, catID); err != nil {
					if errors.Is(err, ErrNotFound) {
						return fmt.Errorf("category %d: %w", catID, ErrNotFound)
					}
					return err
				}
				existing.CategoryID = &catID
			} else {
				existing.CategoryID = nil
			}
		}
		if upd.Amount != nil {
			existing.Amount = *upd.Amount
		}
		if upd.Type != nil {
			existing.Type = *upd.Type
		}
		if upd.Date != nil {
			existing.Date = *upd.Date
		}
		if upd.Description != nil {
			existing.Description = *upd.Description
		}
		if upd.Tags != nil {
			existing.Tags = *upd.Tags
		}

		tags, err := encodeTags(existing.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}

		row, err := tx.queries.UpdateTransaction(ctx, UpdateTransactionParams{
			ID:          id,
			UserID:      userID,
			CategoryID:  nullableID(existing.CategoryID),
			AmountCents: existing.Amount.Cents,
			Type:        string(existing.Type),
			Date:        existing.Date.String(),
			Description: nullableString(existing.Description),
			Tags:        tags,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		updated, err = transactionFromRow(row)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	rows, err := r.queries.DeleteTransaction(ctx, DeleteTransactionParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// ---- reports ----

func (r *Repository) Summary(ctx context.Context, userID int64, start, end core.Date) (core.Summary, error) {
	row, err := r.queries.GetSummary(ctx, GetSummaryParams{
		UserID:    userID,
		StartDate: start.String(),
		EndDate:   end.String(),
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return core.NewSummary(core.Money{Cents: row.IncomeCents}, core.Money{Cents: row.ExpenseCents}), nil
}

func (r *Repository) SpendingByCategory(ctx context.Context, userID int64, start, end core.Date) ([]core.CategorySpend, error) {
	rows, err := r.queries.GetSpendingByCategory(ctx, GetSpendingByCategoryParams{
		UncategorizedName: core.UncategorizedName,
		UserID:            userID,
		StartDate:         start.String(),
		EndDate:           end.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("get spending by category: %w", err)
	}

	spending := make([]core.CategorySpend, 0, len(rows))
	for _, row := range rows {
		spending = append(spending, core.CategorySpend{
			CategoryName: row.CategoryName,
			CategoryType: core.EntryType(row.CategoryType),
			TotalAmount:  core.Money{Cents: row.TotalCents},
		})
	}
	return spending, nil
}

// ---- export queue ----

func (r *Repository) ListPendingExport(ctx context.Context, limit int) ([]PendingExportRow, error) {
	rows, err := r.queries.ListPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	return rows, nil
}

func (r *Repository) MarkSynced(ctx context.Context, id, version int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, MarkTransactionSyncedParams{ID: id, Version: version}); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// ExportTransaction is a transaction joined with its category name, as the
// spreadsheet exporter wants it.
type ExportTransaction struct {
	Transaction  core.Transaction
	CategoryName string
	Version      int64
}

func (r *Repository) GetTransactionForExport(ctx context.Context, id int64) (ExportTransaction, error) {
	row, err := r.queries.GetTransactionForExport(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportTransaction{}, ErrNotFound
	}
	if err != nil {
		return ExportTransaction{}, fmt.Errorf("get transaction for export: %w", err)
	}

	t, err := transactionFromRow(row.TransactionRow)
	if err != nil {
		return ExportTransaction{}, err
	}

	name := core.UncategorizedName
	if row.CategoryName.Valid {
		name = row.CategoryName.String
	}
	return ExportTransaction{Transaction: t, CategoryName: name, Version: row.Version}, nil
}

// ---- recurring transactions ----

func (r *Repository) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if rt.CategoryID != nil {
		if _, err := r.GetCategory(ctx, rt.UserID, *rt.CategoryID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return core.RecurringTransaction{}, fmt.Errorf("category %d: %w", *rt.CategoryID, ErrNotFound)
			}
			return core.RecurringTransaction{}, err
		}
	}

	var endDate sql.NullString
	if !rt.EndDate.IsZero() {
		endDate = sql.NullString{String: rt.EndDate.String(), Valid: true}
	}

	row, err := r.queries.CreateRecurring(ctx, CreateRecurringParams{
		UserID:      rt.UserID,
		CategoryID:  nullableID(rt.CategoryID),
		AmountCents: rt.Amount.Cents,
		Type:        string(rt.Type),
		Description: rt.Description,
		Every:       string(rt.Every),
		StartDate:   rt.StartDate.String(),
		EndDate:     endDate,
		Active:      1,
	})
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}

	slog.InfoContext(ctx, "Recurring transaction created",
		"id", row.ID, "user_id", row.UserID, "every", row.Every, "description", row.Description)
	return recurringFromRow(row)
}

func (r *Repository) GetRecurring(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	row, err := r.queries.GetRecurring(ctx, GetRecurringParams{ID: id, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction: %w", err)
	}
	return recurringFromRow(row)
}

func (r *Repository) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringTransaction, error) {
	rows, err := r.queries.ListRecurring(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return recurringsFromRows(rows)
}

func (r *Repository) ListActiveRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.queries.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active recurring transactions: %w", err)
	}
	return recurringsFromRows(rows)
}

func (r *Repository) MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error {
	err := r.queries.SetRecurringExecuted(ctx, SetRecurringExecutedParams{
		ID:                id,
		LastExecutionDate: sql.NullTime{Time: at.UTC(), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("mark recurring executed: %w", err)
	}
	return nil
}

func (r *Repository) SetRecurringActive(ctx context.Context, id int64, active bool) error {
	var flag int64
	if active {
		flag = 1
	}
	if err := r.queries.SetRecurringActive(ctx, SetRecurringActiveParams{ID: id, Active: flag}); err != nil {
		return fmt.Errorf("set recurring active: %w", err)
	}
	return nil
}

func (r *Repository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	rows, err := r.queries.DeleteRecurring(ctx, DeleteRecurringParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Recurring transaction deleted", "id", id, "user_id", userID)
	return nil
}

// ---- row conversion ----

func categoryFromRow(row CategoryRow) core.Category {
	return core.Category{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Type:      core.EntryType(row.Type),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func transactionFromRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", row.Date, err)
	}

	tags, err := decodeTags(row.Tags)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode tags: %w", err)
	}

	t := core.Transaction{
		ID:        row.ID,
		UserID:    row.UserID,
		Amount:    core.Money{Cents: row.AmountCents},
		Type:      core.EntryType(row.Type),
		Date:      date,
		Tags:      tags,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.Int64
		t.CategoryID = &id
	}
	if row.Description.Valid {
		t.Description = row.Description.String
	}
	return t, nil
}

func recurringFromRow(row RecurringTransactionRow) (core.RecurringTransaction, error) {
	startDate, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse stored start date %q: %w", row.StartDate, err)
	}

	rt := core.RecurringTransaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      core.Money{Cents: row.AmountCents},
		Type:        core.EntryType(row.Type),
		Description: row.Description,
		Every:       core.RepeatInterval(row.Every),
		StartDate:   startDate,
		Active:      row.Active != 0,
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.Int64
		rt.CategoryID = &id
	}
	if row.EndDate.Valid {
		endDate, err := core.ParseDate(row.EndDate.String)
		if err != nil {
			return core.RecurringTransaction{}, fmt.Errorf("parse stored end date %q: %w", row.EndDate.String, err)
		}
		rt.EndDate = endDate
	}
	if row.LastExecutionDate.Valid {
		rt.LastExecutionDate = row.LastExecutionDate.Time
	}
	return rt, nil
}

func recurringsFromRows(rows []RecurringTransactionRow) ([]core.RecurringTransaction, error) {
	items := make([]core.RecurringTransaction, 0, len(rows))
	for _, row := range rows {
		rt, err := recurringFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, rt)
	}
	return items, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
