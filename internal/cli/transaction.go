package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

func (a *app) runTransaction(args []string) int {
	if len(args) == 0 {
		return a.usageError("transaction requires a subcommand: add, list, update, delete")
	}
	switch args[0] {
	case "add":
		return a.transactionAdd(args[1:])
	case "list":
		return a.transactionList(args[1:])
	case "update":
		return a.transactionUpdate(args[1:])
	case "delete":
		return a.transactionDelete(args[1:])
	default:
		return a.usageError(fmt.Sprintf("unknown transaction subcommand %q", args[0]))
	}
}

func (a *app) transactionAdd(args []string) int {
	fs := newFlagSet("transaction add", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	amount := fs.String("amount", "", "decimal amount, e.g. 12.34 (required)")
	typ := fs.String("type", "", "expense or income (required)")
	date := fs.String("date", "", "date YYYY-MM-DD (required)")
	category := fs.Int64("category", 0, "category id")
	description := fs.String("description", "", "free-form description")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	t := core.Transaction{
		UserID:      *user,
		Type:        core.EntryType(*typ),
		Description: *description,
		Tags:        splitTags(*tags),
	}
	if *category > 0 {
		t.CategoryID = category
	}
	if m, err := core.ParseMoney(*amount); err == nil {
		t.Amount = m
	}
	if d, err := core.ParseDate(*date); err == nil {
		t.Date = d
	}

	created, err := a.transactions.Create(context.Background(), t)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(toTransactionOut(created))
	}
	fmt.Fprintf(a.stdout, "Created transaction #%d %s %s on %s\n",
		created.ID, created.Type, created.Amount, created.Date)
	return 0
}

func (a *app) transactionList(args []string) int {
	fs := newFlagSet("transaction list", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "end date YYYY-MM-DD")
	category := fs.Int64("category", 0, "filter by category id")
	typ := fs.String("type", "", "filter by type")
	limit := fs.Int("limit", 0, "max rows")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	f := storage.TransactionFilter{
		UserID: *user,
		Type:   core.EntryType(*typ),
		Limit:  *limit,
		Offset: *offset,
	}
	if *start != "" {
		d, err := core.ParseDate(*start)
		if err != nil {
			return a.usageError("invalid --start date")
		}
		f.StartDate = d.String()
	}
	if *end != "" {
		d, err := core.ParseDate(*end)
		if err != nil {
			return a.usageError("invalid --end date")
		}
		f.EndDate = d.String()
	}
	if *category > 0 {
		f.CategoryID = category
	}

	items, err := a.transactions.List(context.Background(), f)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		out := make([]transactionOut, 0, len(items))
		for _, t := range items {
			out = append(out, toTransactionOut(t))
		}
		return a.printJSON(out)
	}
	for _, t := range items {
		fmt.Fprintf(a.stdout, "#%d\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Type, t.Amount, t.Description)
	}
	return 0
}

func (a *app) transactionUpdate(args []string) int {
	fs := newFlagSet("transaction update", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	id := fs.Int64("id", 0, "transaction id (required)")
	amount := fs.String("amount", "", "new amount")
	typ := fs.String("type", "", "new type")
	date := fs.String("date", "", "new date YYYY-MM-DD")
	category := fs.Int64("category", 0, "new category id")
	fs.Bool("no-category", false, "detach the category")
	description := fs.String("description", "", "new description")
	tags := fs.String("tags", "", "new comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var upd storage.TransactionUpdate
	set := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "user", "id":
			return
		}
		set = true
		switch f.Name {
		case "amount":
			m, err := core.ParseMoney(*amount)
			if err != nil {
				m = core.Money{}
			}
			upd.Amount = &m
		case "type":
			t := core.EntryType(*typ)
			upd.Type = &t
		case "date":
			d, err := core.ParseDate(*date)
			if err != nil {
				d = core.Date{}
			}
			upd.Date = &d
		case "category":
			upd.CategoryID = &sql.NullInt64{Valid: true, Int64: *category}
		case "no-category":
			upd.CategoryID = &sql.NullInt64{}
		case "description":
			upd.Description = description
		case "tags":
			t := splitTags(*tags)
			upd.Tags = &t
		}
	})
	if !set {
		return a.usageError("transaction update: nothing to update")
	}

	updated, err := a.transactions.Update(context.Background(), *user, *id, upd)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(toTransactionOut(updated))
	}
	fmt.Fprintf(a.stdout, "Updated transaction #%d %s %s on %s\n",
		updated.ID, updated.Type, updated.Amount, updated.Date)
	return 0
}

func (a *app) transactionDelete(args []string) int {
	fs := newFlagSet("transaction delete", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	id := fs.Int64("id", 0, "transaction id (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := a.transactions.Delete(context.Background(), *user, *id); err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(map[string]any{"deleted": *id})
	}
	fmt.Fprintf(a.stdout, "Deleted transaction #%d\n", *id)
	return 0
}
