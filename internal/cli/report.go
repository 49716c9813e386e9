package cli

import (
	"context"
	"fmt"

	"ledger/internal/core"
)

func (a *app) parseRange(start, end string) (core.Date, core.Date, error) {
	var s, e core.Date
	if start != "" {
		parsed, err := core.ParseDate(start)
		if err != nil {
			return s, e, fmt.Errorf("invalid --start date")
		}
		s = parsed
	}
	if end != "" {
		parsed, err := core.ParseDate(end)
		if err != nil {
			return s, e, fmt.Errorf("invalid --end date")
		}
		e = parsed
	}
	return s, e, nil
}

func (a *app) runSummary(args []string) int {
	fs := newFlagSet("summary", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD (required)")
	end := fs.String("end", "", "end date YYYY-MM-DD (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, e, err := a.parseRange(*start, *end)
	if err != nil {
		return a.usageError(err.Error())
	}

	summary, err := a.transactions.Summary(context.Background(), *user, s, e)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(summaryOut{
			TotalIncome:  summary.TotalIncome,
			TotalExpense: summary.TotalExpense,
			Balance:      summary.Balance,
		})
	}
	fmt.Fprintf(a.stdout, "Income:  %s\n", summary.TotalIncome)
	fmt.Fprintf(a.stdout, "Expense: %s\n", summary.TotalExpense)
	fmt.Fprintf(a.stdout, "Balance: %s\n", summary.Balance)
	return 0
}

func (a *app) runSpending(args []string) int {
	fs := newFlagSet("spending", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD (required)")
	end := fs.String("end", "", "end date YYYY-MM-DD (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, e, err := a.parseRange(*start, *end)
	if err != nil {
		return a.usageError(err.Error())
	}

	rows, err := a.transactions.SpendingByCategory(context.Background(), *user, s, e)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		out := make([]spendingOut, 0, len(rows))
		for _, row := range rows {
			out = append(out, spendingOut{
				CategoryName: row.CategoryName,
				CategoryType: row.CategoryType,
				TotalAmount:  row.TotalAmount,
			})
		}
		return a.printJSON(out)
	}
	for _, row := range rows {
		fmt.Fprintf(a.stdout, "%s\t%s\n", row.CategoryName, row.TotalAmount)
	}
	return 0
}
