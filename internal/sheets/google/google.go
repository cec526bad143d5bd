// Package google mirrors the ledger into a Google Sheets spreadsheet.
//
// Each transaction occupies one row with the columns
// date, title, amount, type, category and id. The id column is how rows are
// found again for deletion.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// Column layout of the mirror sheet.
const (
	firstCol = "A"
	lastCol  = "F"
	idCol    = 5
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger

	// serializes find-next-row and write
	mu sync.Mutex
}

var _ ledger.Mirror = (*Client)(nil)

// New creates a client over an existing Sheets service options set.
// Tests point it at a local server with option.WithEndpoint.
func New(ctx context.Context, spreadsheetID, sheet string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = "Transactions"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// NewFromEnv creates a client authenticated with a service account taken from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheet string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountJSON(ctx, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, sheet, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func serviceAccountJSON(ctx context.Context, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// Append writes tx to the row after the last used one and returns its range.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheet, err)
	}
	nextRow := len(resp.Values) + 1

	rng := c.rowRange(nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{toRow(tx)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}

	c.logger.DebugContext(ctx, "Appended row", log.FieldTxID, tx.ID, log.FieldSheetsRef, rng)
	return rng, nil
}

// Delete clears every row holding id. A missing row is not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	cleared := 0
	for _, r := range rows {
		if r.ID != id {
			continue
		}
		rng := c.rowRange(r.Line)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to clear %s: %w", rng, err)
		}
		cleared++
	}
	if cleared > 0 {
		c.logger.DebugContext(ctx, "Cleared rows", log.FieldTxID, id, log.FieldCount, cleared)
	}
	return nil
}

func (c *Client) readRows(ctx context.Context) ([]row, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.sheet, firstCol, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

func (c *Client) rowRange(line int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", c.sheet, firstCol, line, lastCol, line)
}

func toRow(tx core.Transaction) []any {
	return []any{tx.Date.String(), tx.Title, tx.Amount.Float64(), string(tx.Type), tx.Category, tx.ID}
}
