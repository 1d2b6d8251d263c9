// Package google mirrors ledger rows to a Google Sheets spreadsheet through
// a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"splitbill/internal/log"
	ports "splitbill/internal/sheets"
)

type Config struct {
	SpreadsheetID string
	// SheetName is the base name; rows land in "<year> <SheetName>" by the
	// year of the transaction date.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger
}

var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client authenticated with service account
// credentials, inline JSON taking precedence over the file.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service, used by tests pointing at a
// fake endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendRow writes row below the last used row of its year's sheet. An empty
// sheet gets the header first. A row whose event id is already in column A
// is not written again.
func (c *Client) AppendRow(ctx context.Context, row ports.LedgerRow) (string, error) {
	if row.EventID == "" {
		return "", errors.New("append row: missing event id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	year := row.Date.Year()
	if row.Date.IsZero() {
		year = time.Now().Year()
	}
	sheet := yearPrefixedName(c.sheetBase, year)

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read event column of %s: %w", sheet, err)
	}
	for i, existing := range resp.Values {
		if len(existing) > 0 && strings.TrimSpace(fmt.Sprint(existing[0])) == row.EventID {
			c.logger.InfoContext(ctx, "Event already mirrored", "event_id", row.EventID, "row", i+1)
			return rowRef(sheet, i+1), nil
		}
	}

	nextRow := len(resp.Values) + 1
	values := [][]any{row.Values()}
	startRow := nextRow
	if nextRow == 1 {
		values = [][]any{ports.Header, row.Values()}
		nextRow = 2
	}

	dataRange := fmt.Sprintf("%s!A%d:H%d", sheet, startRow, nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	ref := rowRef(sheet, nextRow)
	c.logger.InfoContext(ctx, "Appended ledger row",
		"event_id", row.EventID,
		log.FieldTitle, row.Title,
		"row_ref", ref)
	return ref, nil
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:H%d", sheet, row, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
