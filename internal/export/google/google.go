// Package google exports transactions to a Google spreadsheet through the
// Sheets API, authenticated with either a user OAuth token (see cmd/oauth-init)
// or service-account credentials.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/storage"
)

// Sheet layout, one transaction per row:
// A=ID, B=Date, C=Type, D=Description, E=Amount, F=Category, G=Tags.
const rowWidth = "G"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets exporter from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus credentials. Credentials are a user
// OAuth pair (GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE, written by
// cmd/oauth-init) or a service account via GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service. A user OAuth token takes
// precedence over service-account credentials when both are configured.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if clientFile != "" && tokenFile != "" {
		return newOAuthSheetsService(ctx, clientFile, tokenFile)
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// newOAuthSheetsService builds the service from an OAuth client config and a
// previously saved token, refreshing the token automatically when it expires.
func newOAuthSheetsService(ctx context.Context, clientFile, tokenFile string) (*gsheet.Service, error) {
	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client config: %w", err)
	}

	tokenJSON, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "auth", "oauth")
	return service, nil
}

// Append writes the transaction to its row. If a row with the same ID
// already exists (an earlier version), it is overwritten in place;
// otherwise the row is appended below the last used one.
func (c *Client) Append(ctx context.Context, t storage.ExportTransaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, t.Transaction.ID)
	if err != nil {
		return err
	}
	if row == 0 {
		ids, err := c.readIDColumn(ctx)
		if err != nil {
			return err
		}
		row = len(ids) + 1
	}

	tx := t.Transaction
	values := []any{
		strconv.FormatInt(tx.ID, 10),
		tx.Date.String(),
		string(tx.Type),
		tx.Description,
		tx.Amount.String(),
		t.CategoryName,
		strings.Join(tx.Tags, ","),
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, rowWidth, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Transaction exported to sheet",
		"id", tx.ID, "row", row, "sheet", c.sheetName)
	return nil
}

// Delete clears the row holding the transaction id. Missing rows are fine;
// delete messages can arrive for rows that were never exported.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.InfoContext(ctx, "Transaction not present in sheet, nothing to delete", "id", id)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, rowWidth, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Transaction row cleared from sheet",
		"id", id, "row", row, "sheet", c.sheetName)
	return nil
}

// findRow returns the 1-based row holding id, or 0 when absent.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	ids, err := c.readIDColumn(ctx)
	if err != nil {
		return 0, err
	}

	want := strconv.FormatInt(id, 10)
	for i, cell := range ids {
		if cell == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) readIDColumn(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}
