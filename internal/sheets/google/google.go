package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"quarra/internal/core"
	ports "quarra/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads series from the tabs of a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	layout        ports.Layout
}

var _ ports.SeriesReader = (*Client)(nil)

// NewFromEnv creates a Sheets client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID string, layout ports.Layout) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, layout), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID string, layout ports.Layout) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, layout: layout}
}

// newSheetsService initializes a read-only Sheets service using Service Account credentials.
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
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadSeries reads the whole tab mapped to kind. Values are requested
// unformatted so dates arrive as serial numbers and amounts as numbers.
func (c *Client) ReadSeries(ctx context.Context, kind core.SeriesKind) (core.Series, error) {
	if c.svc == nil {
		return core.Series{}, errors.New("sheets service not initialized")
	}
	sheet := c.layout.SheetName(kind)
	rng := fmt.Sprintf("'%s'", strings.ReplaceAll(sheet, "'", "''"))

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		if isRangeError(err) {
			return core.Series{}, fmt.Errorf("%s (tab %q): %w", kind, sheet, ports.ErrSeriesNotFound)
		}
		return core.Series{}, fmt.Errorf("read tab %q: %w", sheet, err)
	}

	series, skipped := ports.ParseValues(kind, resp.Values, c.layout.DateColumnName())
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped rows with invalid dates", "series", kind, "sheet", sheet, "skipped", skipped)
	}
	return series, nil
}

// isRangeError matches the API answer for a tab that does not exist.
func isRangeError(err error) bool {
	return strings.Contains(err.Error(), "Unable to parse range")
}
