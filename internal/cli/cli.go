// Package cli implements the ledger command line tool. It mirrors the HTTP
// API against the same storage, one subcommand per operation.
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"ledger/internal/services"
	"ledger/internal/storage"
)

const usage = `Usage: ledger [flags] <command> [command flags]

Commands:
  category add|list|update|delete
  transaction add|list|update|delete
  recurring add|list|delete
  summary
  spending

Flags:
  --db PATH   SQLite database path (default $SQLITE_DB_PATH or ./data/ledger.db)
  --json      machine-readable output
`

// app bundles the services and output settings a command needs.
type app struct {
	storage      *storage.Repository
	categories   *services.CategoryService
	transactions *services.TransactionService
	recurring    *services.RecurringService

	jsonOut bool
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the CLI and returns the process exit code. Errors print to
// stderr and yield a non-zero code; usage mistakes yield 2.
func Run(args []string, stdout, stderr io.Writer) int {
	LoadEnvFile()

	defaultDB := os.Getenv("SQLITE_DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/ledger.db"
	}

	global := flag.NewFlagSet("ledger", flag.ContinueOnError)
	global.SetOutput(stderr)
	dbPath := global.String("db", defaultDB, "SQLite database path")
	jsonOut := global.Bool("json", false, "machine-readable output")
	global.Usage = func() { fmt.Fprint(stderr, usage) }

	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	repo, err := storage.NewRepository(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "ledger: open database: %v\n", err)
		return 1
	}
	defer repo.Close()

	a := &app{
		storage:      repo,
		categories:   services.NewCategoryService(repo),
		transactions: services.NewTransactionService(repo, nil),
		recurring:    services.NewRecurringService(repo, true),
		jsonOut:      *jsonOut,
		stdout:       stdout,
		stderr:       stderr,
	}

	return a.dispatch(rest[0], rest[1:])
}

func (a *app) dispatch(command string, args []string) int {
	switch command {
	case "category":
		return a.runCategory(args)
	case "transaction":
		return a.runTransaction(args)
	case "recurring":
		return a.runRecurring(args)
	case "summary":
		return a.runSummary(args)
	case "spending":
		return a.runSpending(args)
	default:
		fmt.Fprintf(a.stderr, "ledger: unknown command %q\n%s", command, usage)
		return 2
	}
}

// fail prints the error and maps it to an exit code.
func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "ledger: %v\n", err)
	return 1
}

func (a *app) usageError(msg string) int {
	fmt.Fprintf(a.stderr, "ledger: %s\n", msg)
	return 2
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.fail(err)
	}
	return 0
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
