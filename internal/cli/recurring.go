package cli

import (
	"context"
	"fmt"

	"ledger/internal/core"
)

func (a *app) runRecurring(args []string) int {
	if len(args) == 0 {
		return a.usageError("recurring requires a subcommand: add, list, delete")
	}
	switch args[0] {
	case "add":
		return a.recurringAdd(args[1:])
	case "list":
		return a.recurringList(args[1:])
	case "delete":
		return a.recurringDelete(args[1:])
	default:
		return a.usageError(fmt.Sprintf("unknown recurring subcommand %q", args[0]))
	}
}

func (a *app) recurringAdd(args []string) int {
	fs := newFlagSet("recurring add", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	amount := fs.String("amount", "", "decimal amount (required)")
	typ := fs.String("type", "", "expense or income (required)")
	description := fs.String("description", "", "template description (required)")
	every := fs.String("every", "", "daily, weekly, monthly, or yearly (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD (required)")
	end := fs.String("end", "", "end date YYYY-MM-DD")
	category := fs.Int64("category", 0, "category id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt := core.RecurringTransaction{
		UserID:      *user,
		Type:        core.EntryType(*typ),
		Description: *description,
		Every:       core.RepeatInterval(*every),
		Active:      true,
	}
	if *category > 0 {
		rt.CategoryID = category
	}
	if m, err := core.ParseMoney(*amount); err == nil {
		rt.Amount = m
	}
	if d, err := core.ParseDate(*start); err == nil {
		rt.StartDate = d
	}
	if *end != "" {
		d, err := core.ParseDate(*end)
		if err != nil {
			return a.usageError("invalid --end date")
		}
		rt.EndDate = d
	}

	created, err := a.recurring.Create(context.Background(), rt)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(toRecurringOut(created))
	}
	fmt.Fprintf(a.stdout, "Created recurring template #%d %q (%s %s, %s from %s)\n",
		created.ID, created.Description, created.Type, created.Amount, created.Every, created.StartDate)
	return 0
}

func (a *app) recurringList(args []string) int {
	fs := newFlagSet("recurring list", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	items, err := a.recurring.List(context.Background(), *user)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		out := make([]recurringOut, 0, len(items))
		for _, rt := range items {
			out = append(out, toRecurringOut(rt))
		}
		return a.printJSON(out)
	}
	for _, rt := range items {
		state := "active"
		if !rt.Active {
			state = "inactive"
		}
		fmt.Fprintf(a.stdout, "#%d\t%s\t%s\t%s\t%s\t%s\n",
			rt.ID, rt.Description, rt.Type, rt.Amount, rt.Every, state)
	}
	return 0
}

func (a *app) recurringDelete(args []string) int {
	fs := newFlagSet("recurring delete", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	id := fs.Int64("id", 0, "template id (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := a.recurring.Delete(context.Background(), *user, *id); err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(map[string]any{"deleted": *id})
	}
	fmt.Fprintf(a.stdout, "Deleted recurring template #%d\n", *id)
	return 0
}
