// Command oauth-init runs the one-time Google OAuth consent flow and saves
// the resulting token where the export worker expects it.
//
// It reads the OAuth client config from GOOGLE_OAUTH_CLIENT_FILE, opens a
// local callback server, prints the consent URL, and writes the exchanged
// token to GOOGLE_OAUTH_TOKEN_FILE (default token.json).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/cli"
	"ledger/internal/log"
)

const (
	defaultRedirectPort = 8085
	defaultTokenFile    = "token.json"
	consentTimeout      = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := log.Setup(log.ComponentOAuthInit)

	clientFile := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")
	if clientFile == "" {
		logger.Error("GOOGLE_OAUTH_CLIENT_FILE is not set")
		os.Exit(1)
	}

	tokenFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if tokenFile == "" {
		tokenFile = defaultTokenFile
	}

	port := defaultRedirectPort
	if v := os.Getenv("OAUTH_REDIRECT_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > 65535 {
			logger.Error("Invalid OAUTH_REDIRECT_PORT", "value", v)
			os.Exit(1)
		}
		port = p
	}

	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		logger.Error("Failed to read OAuth client file", "error", err, "path", clientFile)
		os.Exit(1)
	}

	cfg, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		logger.Error("Failed to parse OAuth client config", "error", err)
		os.Exit(1)
	}
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	ctx, cancel := context.WithTimeout(context.Background(), consentTimeout)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	token, err := runConsentFlow(ctx, logger, cfg, port)
	if err != nil {
		logger.Error("OAuth flow failed", "error", err)
		os.Exit(1)
	}

	if err := saveToken(tokenFile, token); err != nil {
		logger.Error("Failed to save token", "error", err, "path", tokenFile)
		os.Exit(1)
	}

	logger.Info("Token saved", "path", tokenFile)
	fmt.Printf("Token written to %s. Set GOOGLE_OAUTH_TOKEN_FILE=%s for the export worker.\n", tokenFile, tokenFile)
}

func runConsentFlow(ctx context.Context, logger *slog.Logger, cfg *oauth2.Config, port int) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "Authorization denied", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errMsg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing code parameter", http.StatusBadRequest)
			errCh <- errors.New("callback missing code parameter")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		codeCh <- code
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	logger.Info("Waiting for authorization", "callback_port", port)
	fmt.Printf("Open the following URL in your browser:\n\n  %s\n\n", authURL)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization not completed: %w", ctx.Err())
	case err := <-errCh:
		return nil, err
	case code := <-codeCh:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return token, nil
	}
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}
