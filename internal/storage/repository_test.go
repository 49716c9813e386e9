package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite runs every test against a fresh file-backed database
// so the migration path is exercised too.
type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context

	alice int64
	bob   int64
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()

	repo, err := NewRepository(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err, "failed to open test database")
	s.repo = repo

	a, err := repo.CreateUser(s.ctx, "alice@example.com", "hash-a")
	require.NoError(s.T(), err)
	b, err := repo.CreateUser(s.ctx, "bob@example.com", "hash-b")
	require.NoError(s.T(), err)
	s.alice, s.bob = a.ID, b.ID
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) mustCategory(userID int64, name string, typ core.EntryType) core.Category {
	c, err := s.repo.CreateCategory(s.ctx, core.Category{UserID: userID, Name: name, Type: typ})
	require.NoError(s.T(), err)
	return c
}

func (s *RepositoryTestSuite) mustTransaction(t core.Transaction) core.Transaction {
	created, err := s.repo.CreateTransaction(s.ctx, t)
	require.NoError(s.T(), err)
	return created
}

func (s *RepositoryTestSuite) TestCategoryRoundTrip() {
	created := s.mustCategory(s.alice, "Food", core.Expense)
	assert.NotZero(s.T(), created.ID)
	assert.False(s.T(), created.CreatedAt.IsZero())

	got, err := s.repo.GetCategory(s.ctx, s.alice, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, got.ID)
	assert.Equal(s.T(), "Food", got.Name)
	assert.Equal(s.T(), core.Expense, got.Type)
}

func (s *RepositoryTestSuite) TestCategoryPartialUpdate() {
	created := s.mustCategory(s.alice, "Food", core.Expense)

	name := "Groceries"
	updated, err := s.repo.UpdateCategory(s.ctx, s.alice, created.ID, CategoryUpdate{Name: &name})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Groceries", updated.Name)
	assert.Equal(s.T(), core.Expense, updated.Type, "type must survive a name-only update")
}

func (s *RepositoryTestSuite) TestCategoryDeleteThenGet() {
	created := s.mustCategory(s.alice, "Food", core.Expense)

	require.NoError(s.T(), s.repo.DeleteCategory(s.ctx, s.alice, created.ID))

	_, err := s.repo.GetCategory(s.ctx, s.alice, created.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	err = s.repo.DeleteCategory(s.ctx, s.alice, created.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound, "second delete must report absence")
}

func (s *RepositoryTestSuite) TestCategoryDeleteDetachesTransactions() {
	cat := s.mustCategory(s.alice, "Food", core.Expense)
	tx := s.mustTransaction(core.Transaction{
		UserID:     s.alice,
		CategoryID: &cat.ID,
		Amount:     core.Money{Cents: 5000},
		Type:       core.Expense,
		Date:       core.NewDate(2023, 10, 1),
	})

	require.NoError(s.T(), s.repo.DeleteCategory(s.ctx, s.alice, cat.ID))

	got, err := s.repo.GetTransaction(s.ctx, s.alice, tx.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got.CategoryID, "transaction must survive with category cleared")
}

func (s *RepositoryTestSuite) TestTransactionRoundTrip() {
	cat := s.mustCategory(s.alice, "Food", core.Expense)
	created := s.mustTransaction(core.Transaction{
		UserID:      s.alice,
		CategoryID:  &cat.ID,
		Amount:      core.Money{Cents: 1250},
		Type:        core.Expense,
		Date:        core.NewDate(2023, 10, 5),
		Description: "lunch",
		Tags:        []string{"work", "food"},
	})

	got, err := s.repo.GetTransaction(s.ctx, s.alice, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1250), got.Amount.Cents)
	assert.Equal(s.T(), core.Expense, got.Type)
	assert.Equal(s.T(), "2023-10-05", got.Date.String())
	assert.Equal(s.T(), "lunch", got.Description)
	assert.Equal(s.T(), []string{"work", "food"}, got.Tags)
	require.NotNil(s.T(), got.CategoryID)
	assert.Equal(s.T(), cat.ID, *got.CategoryID)
}

func (s *RepositoryTestSuite) TestTransactionRejectsForeignCategory() {
	bobCat := s.mustCategory(s.bob, "Food", core.Expense)

	_, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
		UserID:     s.alice,
		CategoryID: &bobCat.ID,
		Amount:     core.Money{Cents: 100},
		Type:       core.Expense,
		Date:       core.NewDate(2023, 10, 1),
	})
	assert.ErrorIs(s.T(), err, ErrNotFound, "another user's category must look absent")
}

func (s *RepositoryTestSuite) TestTransactionPartialUpdate() {
	created := s.mustTransaction(core.Transaction{
		UserID:      s.alice,
		Amount:      core.Money{Cents: 1000},
		Type:        core.Expense,
		Date:        core.NewDate(2023, 10, 1),
		Description: "original",
		Tags:        []string{"a"},
	})

	amount := core.Money{Cents: 2000}
	updated, err := s.repo.UpdateTransaction(s.ctx, s.alice, created.ID, TransactionUpdate{Amount: &amount})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2000), updated.Amount.Cents)
	assert.Equal(s.T(), "original", updated.Description, "untouched fields must survive")
	assert.Equal(s.T(), []string{"a"}, updated.Tags)
	assert.Equal(s.T(), "2023-10-01", updated.Date.String())
}

func (s *RepositoryTestSuite) TestTransactionUpdateClearsCategory() {
	cat := s.mustCategory(s.alice, "Food", core.Expense)
	created := s.mustTransaction(core.Transaction{
		UserID:     s.alice,
		CategoryID: &cat.ID,
		Amount:     core.Money{Cents: 1000},
		Type:       core.Expense,
		Date:       core.NewDate(2023, 10, 1),
	})

	detach := sql.NullInt64{} // Valid=false means detach
	updated, err := s.repo.UpdateTransaction(s.ctx, s.alice, created.ID, TransactionUpdate{CategoryID: &detach})
	require.NoError(s.T(), err)
	assert.Nil(s.T(), updated.CategoryID)
}

func (s *RepositoryTestSuite) TestTransactionDeleteThenGet() {
	created := s.mustTransaction(core.Transaction{
		UserID: s.alice,
		Amount: core.Money{Cents: 100},
		Type:   core.Income,
		Date:   core.NewDate(2023, 10, 1),
	})

	require.NoError(s.T(), s.repo.DeleteTransaction(s.ctx, s.alice, created.ID))
	_, err := s.repo.GetTransaction(s.ctx, s.alice, created.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestListTransactionsFilterAndOrder() {
	cat := s.mustCategory(s.alice, "Food", core.Expense)
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 100}, Type: core.Expense, Date: core.NewDate(2023, 10, 1), CategoryID: &cat.ID})
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 200}, Type: core.Income, Date: core.NewDate(2023, 10, 15)})
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 300}, Type: core.Expense, Date: core.NewDate(2023, 11, 1)})

	all, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.alice})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 3)
	assert.Equal(s.T(), "2023-11-01", all[0].Date.String(), "newest first")
	assert.Equal(s.T(), "2023-10-01", all[2].Date.String())

	october, err := s.repo.ListTransactions(s.ctx, TransactionFilter{
		UserID:    s.alice,
		StartDate: "2023-10-01",
		EndDate:   "2023-10-31",
	})
	require.NoError(s.T(), err)
	assert.Len(s.T(), october, 2, "date range is inclusive on both ends")

	expenses, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.alice, Type: "expense"})
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 2)

	byCat, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.alice, CategoryID: &cat.ID})
	require.NoError(s.T(), err)
	assert.Len(s.T(), byCat, 1)

	limited, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.alice, Limit: 1, Offset: 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), limited, 1)
	assert.Equal(s.T(), "2023-10-15", limited[0].Date.String())

	shifted, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.alice, Offset: 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), shifted, 2, "offset applies without a limit")
	assert.Equal(s.T(), "2023-10-15", shifted[0].Date.String())
}

func (s *RepositoryTestSuite) TestCrossUserIsolation() {
	mine := s.mustTransaction(core.Transaction{
		UserID: s.alice,
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
		Date:   core.NewDate(2023, 10, 1),
	})

	// Direct id probing by another user must look like absence.
	_, err := s.repo.GetTransaction(s.ctx, s.bob, mine.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	err = s.repo.DeleteTransaction(s.ctx, s.bob, mine.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.repo.UpdateTransaction(s.ctx, s.bob, mine.ID, TransactionUpdate{})
	assert.ErrorIs(s.T(), err, ErrNotFound)

	list, err := s.repo.ListTransactions(s.ctx, TransactionFilter{UserID: s.bob})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)

	// And the row is still there for its owner.
	_, err = s.repo.GetTransaction(s.ctx, s.alice, mine.ID)
	assert.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TestSummaryWorkedExample() {
	food := s.mustCategory(s.alice, "Food", core.Expense)
	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &food.ID, Amount: core.Money{Cents: 5000}, Type: core.Expense, Date: core.NewDate(2023, 10, 2)})
	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &food.ID, Amount: core.Money{Cents: 3000}, Type: core.Expense, Date: core.NewDate(2023, 10, 10)})
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 50000}, Type: core.Income, Date: core.NewDate(2023, 10, 1)})

	sum, err := s.repo.Summary(s.ctx, s.alice, core.NewDate(2023, 10, 1), core.NewDate(2023, 10, 31))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(50000), sum.TotalIncome.Cents)
	assert.Equal(s.T(), int64(8000), sum.TotalExpense.Cents)
	assert.Equal(s.T(), int64(42000), sum.Balance.Cents)

	spending, err := s.repo.SpendingByCategory(s.ctx, s.alice, core.NewDate(2023, 10, 1), core.NewDate(2023, 10, 31))
	require.NoError(s.T(), err)
	require.Len(s.T(), spending, 1, "income must not appear in spending")
	assert.Equal(s.T(), "Food", spending[0].CategoryName)
	assert.Equal(s.T(), core.Expense, spending[0].CategoryType)
	assert.Equal(s.T(), int64(8000), spending[0].TotalAmount.Cents)
}

func (s *RepositoryTestSuite) TestSummaryEmptyRange() {
	sum, err := s.repo.Summary(s.ctx, s.alice, core.NewDate(2030, 1, 1), core.NewDate(2030, 1, 31))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), sum.TotalIncome.Cents)
	assert.Zero(s.T(), sum.TotalExpense.Cents)
	assert.Zero(s.T(), sum.Balance.Cents)

	spending, err := s.repo.SpendingByCategory(s.ctx, s.alice, core.NewDate(2030, 1, 1), core.NewDate(2030, 1, 31))
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), spending)
	assert.Empty(s.T(), spending)
}

func (s *RepositoryTestSuite) TestSpendingOrderAndUncategorized() {
	food := s.mustCategory(s.alice, "Food", core.Expense)
	rent := s.mustCategory(s.alice, "Rent", core.Expense)

	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &food.ID, Amount: core.Money{Cents: 8000}, Type: core.Expense, Date: core.NewDate(2023, 10, 5)})
	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &rent.ID, Amount: core.Money{Cents: 90000}, Type: core.Expense, Date: core.NewDate(2023, 10, 1)})
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 8000}, Type: core.Expense, Date: core.NewDate(2023, 10, 7)})

	spending, err := s.repo.SpendingByCategory(s.ctx, s.alice, core.NewDate(2023, 10, 1), core.NewDate(2023, 10, 31))
	require.NoError(s.T(), err)
	require.Len(s.T(), spending, 3)

	assert.Equal(s.T(), "Rent", spending[0].CategoryName, "largest total first")
	// Food and Uncategorized tie at 80.00; name breaks the tie.
	assert.Equal(s.T(), "Food", spending[1].CategoryName)
	assert.Equal(s.T(), core.UncategorizedName, spending[2].CategoryName)

	var total int64
	for _, row := range spending {
		total += row.TotalAmount.Cents
	}
	assert.Equal(s.T(), int64(8000+90000+8000), total, "rows must account for every expense")
}

func (s *RepositoryTestSuite) TestSpendingGroupsByCategoryIdentity() {
	// Two distinct categories can share a name; one can even shadow the
	// label used for uncategorized spend. Rows stay separate per category.
	foodA := s.mustCategory(s.alice, "Food", core.Expense)
	foodB := s.mustCategory(s.alice, "Food", core.Expense)
	shadow := s.mustCategory(s.alice, core.UncategorizedName, core.Expense)

	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &foodA.ID, Amount: core.Money{Cents: 5000}, Type: core.Expense, Date: core.NewDate(2023, 10, 2)})
	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &foodB.ID, Amount: core.Money{Cents: 3000}, Type: core.Expense, Date: core.NewDate(2023, 10, 3)})
	s.mustTransaction(core.Transaction{UserID: s.alice, CategoryID: &shadow.ID, Amount: core.Money{Cents: 2000}, Type: core.Expense, Date: core.NewDate(2023, 10, 4)})
	s.mustTransaction(core.Transaction{UserID: s.alice, Amount: core.Money{Cents: 1000}, Type: core.Expense, Date: core.NewDate(2023, 10, 5)})

	spending, err := s.repo.SpendingByCategory(s.ctx, s.alice, core.NewDate(2023, 10, 1), core.NewDate(2023, 10, 31))
	require.NoError(s.T(), err)
	require.Len(s.T(), spending, 4, "same-named categories and the uncategorized bucket stay distinct")

	assert.Equal(s.T(), "Food", spending[0].CategoryName)
	assert.Equal(s.T(), int64(5000), spending[0].TotalAmount.Cents)
	assert.Equal(s.T(), "Food", spending[1].CategoryName)
	assert.Equal(s.T(), int64(3000), spending[1].TotalAmount.Cents)
	assert.Equal(s.T(), core.UncategorizedName, spending[2].CategoryName)
	assert.Equal(s.T(), int64(2000), spending[2].TotalAmount.Cents)
	assert.Equal(s.T(), core.UncategorizedName, spending[3].CategoryName)
	assert.Equal(s.T(), int64(1000), spending[3].TotalAmount.Cents)
}

func (s *RepositoryTestSuite) TestExportBookkeeping() {
	created := s.mustTransaction(core.Transaction{
		UserID: s.alice,
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
		Date:   core.NewDate(2023, 10, 1),
	})

	pending, err := s.repo.ListPendingExport(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), created.ID, pending[0].ID)
	assert.Equal(s.T(), int64(1), pending[0].Version)

	require.NoError(s.T(), s.repo.MarkSynced(s.ctx, created.ID, 1))
	pending, err = s.repo.ListPendingExport(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), pending)

	// An edit bumps the version and re-queues the row.
	amount := core.Money{Cents: 200}
	_, err = s.repo.UpdateTransaction(s.ctx, s.alice, created.ID, TransactionUpdate{Amount: &amount})
	require.NoError(s.T(), err)

	pending, err = s.repo.ListPendingExport(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), int64(2), pending[0].Version)

	// Confirming the stale version must not mark the new one synced.
	require.NoError(s.T(), s.repo.MarkSynced(s.ctx, created.ID, 1))
	pending, err = s.repo.ListPendingExport(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Len(s.T(), pending, 1)

	require.NoError(s.T(), s.repo.MarkSyncError(s.ctx, created.ID))
	pending, err = s.repo.ListPendingExport(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), pending, "errored rows leave the queue")
}

func (s *RepositoryTestSuite) TestGetTransactionForExport() {
	cat := s.mustCategory(s.alice, "Food", core.Expense)
	created := s.mustTransaction(core.Transaction{
		UserID:     s.alice,
		CategoryID: &cat.ID,
		Amount:     core.Money{Cents: 100},
		Type:       core.Expense,
		Date:       core.NewDate(2023, 10, 1),
	})

	exp, err := s.repo.GetTransactionForExport(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Food", exp.CategoryName)
	assert.Equal(s.T(), int64(1), exp.Version)

	bare := s.mustTransaction(core.Transaction{
		UserID: s.alice,
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
		Date:   core.NewDate(2023, 10, 2),
	})
	exp, err = s.repo.GetTransactionForExport(s.ctx, bare.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.UncategorizedName, exp.CategoryName)
}

func (s *RepositoryTestSuite) TestRecurringLifecycle() {
	created, err := s.repo.CreateRecurring(s.ctx, core.RecurringTransaction{
		UserID:      s.alice,
		Amount:      core.Money{Cents: 900},
		Type:        core.Expense,
		Description: "streaming subscription",
		Every:       core.Monthly,
		StartDate:   core.NewDate(2023, 10, 1),
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), created.Active)
	assert.True(s.T(), created.EndDate.IsZero())
	assert.True(s.T(), created.LastExecutionDate.IsZero())

	active, err := s.repo.ListActiveRecurring(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), active, 1)

	at := core.NewDate(2023, 10, 1).Time
	require.NoError(s.T(), s.repo.MarkRecurringExecuted(s.ctx, created.ID, at))
	got, err := s.repo.GetRecurring(s.ctx, s.alice, created.ID)
	require.NoError(s.T(), err)
	assert.WithinDuration(s.T(), at, got.LastExecutionDate, time.Second)

	require.NoError(s.T(), s.repo.SetRecurringActive(s.ctx, created.ID, false))
	active, err = s.repo.ListActiveRecurring(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), active)

	require.NoError(s.T(), s.repo.DeleteRecurring(s.ctx, s.alice, created.ID))
	_, err = s.repo.GetRecurring(s.ctx, s.alice, created.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestUserLookup() {
	u, err := s.repo.GetUserByEmail(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.alice, u.ID)
	assert.Equal(s.T(), "hash-a", u.PasswordHash)

	_, err = s.repo.GetUserByEmail(s.ctx, "nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.repo.CreateUser(s.ctx, "alice@example.com", "other")
	assert.Error(s.T(), err, "duplicate email must be rejected")
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
