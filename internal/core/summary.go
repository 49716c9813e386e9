package core

// Summary holds the income/expense totals for a user over a date range.
// Balance is always TotalIncome minus TotalExpense; missing rows of a type
// contribute zero, never null.
type Summary struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// NewSummary derives the balance from the two totals.
func NewSummary(income, expense Money) Summary {
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      Money{Cents: income.Cents - expense.Cents},
	}
}

// CategorySpend is one row of the expense-by-category report.
// Transactions without a category are reported under UncategorizedName.
type CategorySpend struct {
	CategoryName string
	CategoryType EntryType
	TotalAmount  Money
}

// UncategorizedName labels expense spend whose transactions carry no
// category reference.
const UncategorizedName = "Uncategorized"
