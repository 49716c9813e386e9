package cli

import (
	"context"
	"flag"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

func (a *app) runCategory(args []string) int {
	if len(args) == 0 {
		return a.usageError("category requires a subcommand: add, list, update, delete")
	}
	switch args[0] {
	case "add":
		return a.categoryAdd(args[1:])
	case "list":
		return a.categoryList(args[1:])
	case "update":
		return a.categoryUpdate(args[1:])
	case "delete":
		return a.categoryDelete(args[1:])
	default:
		return a.usageError(fmt.Sprintf("unknown category subcommand %q", args[0]))
	}
}

func (a *app) categoryAdd(args []string) int {
	fs := newFlagSet("category add", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	name := fs.String("name", "", "category name (required)")
	typ := fs.String("type", "", "expense or income (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	created, err := a.categories.Create(context.Background(), core.Category{
		UserID: *user,
		Name:   *name,
		Type:   core.EntryType(*typ),
	})
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(toCategoryOut(created))
	}
	fmt.Fprintf(a.stdout, "Created category #%d %q (%s)\n", created.ID, created.Name, created.Type)
	return 0
}

func (a *app) categoryList(args []string) int {
	fs := newFlagSet("category list", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	typ := fs.String("type", "", "filter by type")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cats, err := a.categories.List(context.Background(), *user)
	if err != nil {
		return a.fail(err)
	}

	filtered := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if *typ != "" && c.Type != core.EntryType(*typ) {
			continue
		}
		filtered = append(filtered, c)
	}

	if a.jsonOut {
		out := make([]categoryOut, 0, len(filtered))
		for _, c := range filtered {
			out = append(out, toCategoryOut(c))
		}
		return a.printJSON(out)
	}
	for _, c := range filtered {
		fmt.Fprintf(a.stdout, "#%d\t%s\t%s\n", c.ID, c.Name, c.Type)
	}
	return 0
}

func (a *app) categoryUpdate(args []string) int {
	fs := newFlagSet("category update", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	id := fs.Int64("id", 0, "category id (required)")
	name := fs.String("name", "", "new name")
	typ := fs.String("type", "", "new type")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Only flags the caller actually set become part of the update.
	var upd storage.CategoryUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			upd.Name = name
		case "type":
			t := core.EntryType(*typ)
			upd.Type = &t
		}
	})
	if upd.Name == nil && upd.Type == nil {
		return a.usageError("category update: nothing to update (set --name or --type)")
	}

	updated, err := a.categories.Update(context.Background(), *user, *id, upd)
	if err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(toCategoryOut(updated))
	}
	fmt.Fprintf(a.stdout, "Updated category #%d %q (%s)\n", updated.ID, updated.Name, updated.Type)
	return 0
}

func (a *app) categoryDelete(args []string) int {
	fs := newFlagSet("category delete", a.stderr)
	user := fs.Int64("user", 0, "owning user id (required)")
	id := fs.Int64("id", 0, "category id (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := a.categories.Delete(context.Background(), *user, *id); err != nil {
		return a.fail(err)
	}

	if a.jsonOut {
		return a.printJSON(map[string]any{"deleted": *id})
	}
	fmt.Fprintf(a.stdout, "Deleted category #%d\n", *id)
	return 0
}
