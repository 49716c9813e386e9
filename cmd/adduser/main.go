// Command adduser provisions a ledger user with a bcrypt-hashed password.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"ledger/internal/cli"
	"ledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := log.Setup(log.ComponentAddUser)

	email := flag.String("email", "", "user email (required)")
	dbPath := flag.String("db", "", "SQLite database path (default $SQLITE_DB_PATH or ./data/ledger.db)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "adduser: --email is required")
		os.Exit(2)
	}
	if *dbPath == "" {
		*dbPath = os.Getenv("SQLITE_DB_PATH")
	}
	if *dbPath == "" {
		*dbPath = "./data/ledger.db"
	}

	password, err := promptPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "adduser: %v\n", err)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adduser: hash password: %v\n", err)
		os.Exit(1)
	}

	repo := cli.InitStorage(logger, *dbPath)
	defer repo.Close()

	user, err := repo.CreateUser(context.Background(), strings.TrimSpace(*email), string(hash))
	if err != nil {
		fmt.Fprintf(os.Stderr, "adduser: create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created user #%d (%s)\n", user.ID, user.Email)
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
