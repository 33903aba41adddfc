package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Client appends one row per savings snapshot to a spreadsheet tab.
// Column layout: user, month, year, income, expenses, saved, rate.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.SavingsMirror = (*Client)(nil)

// New creates a mirror client from service account credentials.
// Returns core.ErrNotConfigured when spreadsheetID is empty so callers
// can treat the mirror as disabled.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, core.ErrNotConfigured
	}
	if sheetName = strings.TrimSpace(sheetName); sheetName == "" {
		sheetName = "Savings"
	}

	svc, err := newSheetsService(ctx, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from credentialsFile, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, credentialsFile string) (*gsheet.Service, error) {
	if credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if credentialsFile == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_FILE or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

func (c *Client) AppendSnapshot(ctx context.Context, s core.MonthlySaving) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		s.UserID,
		string(s.Month),
		s.Year,
		s.Income.Rupees(),
		s.Expenses.Rupees(),
		s.Saved.Rupees(),
		s.SavingsRate,
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append snapshot row to %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Mirrored savings snapshot to spreadsheet",
		"user_id", s.UserID,
		"month", string(s.Month),
		"sheet", c.sheetName)

	return nil
}
