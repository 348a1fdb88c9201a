// Package google reads the economics dataset from a Google Sheets range.
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

	"sjcharts/internal/core"
	"sjcharts/internal/source"
)

// DefaultRange covers Year, Month and the fourteen numeric columns.
const DefaultRange = "Data!A:P"

var _ source.RecordReader = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	Range         string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetRange    string
}

// New creates a Sheets client using service account credentials from the
// environment (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = DefaultRange
	}
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID), sheetRange: rng}
}

// newSheetsService initializes a read-only Sheets service with service
// account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
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

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadRecords reads the configured range; the first row is the header.
func (c *Client) ReadRecords(ctx context.Context) ([]core.Record, error) {
	if c.svc == nil {
		return nil, source.Unavailable("sheets", errors.New("sheets service not initialized"))
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, source.Unavailable("sheets", fmt.Errorf("read %s: %w", c.sheetRange, err))
	}
	return parseValues(resp.Values)
}

// parseValues converts a values matrix (as returned by the Sheets API) into
// records.
func parseValues(values [][]interface{}) ([]core.Record, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty sheet range", source.ErrSchemaDrift)
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return source.FromRows(header, rows)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
