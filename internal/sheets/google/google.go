// Package google exports monthly budget reports to a Google Spreadsheet
// using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pockets/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Budgets"); the year is prefixed per report.
	reportBase string
}

var _ sheets.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS). Optional: GOOGLE_REPORT_SHEET_NAME
// (default "Budgets").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportBase := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportBase == "" {
		reportBase = "Budgets"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportBase:    reportBase,
	}, nil
}

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

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendMonthlyReport appends one header row plus one row per category to
// the year's report sheet.
func (c *Client) AppendMonthlyReport(ctx context.Context, report sheets.MonthlyReport) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetName := yearPrefixedName(c.reportBase, report.Year)

	values := make([][]any, 0, len(report.Rows)+1)
	values = append(values, []any{
		fmt.Sprintf("%04d-%02d", report.Year, report.Month),
		report.GroupName, "", "", "", "", "",
	})
	for _, row := range report.Rows {
		values = append(values, []any{
			"",
			row.Category,
			row.Scope,
			row.Owner,
			row.Allocated.StringFixed(2),
			row.Spent.StringFixed(2),
			row.Status,
		})
	}

	rng := fmt.Sprintf("%s!A:G", sheetName)
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report to sheet %s: %w", sheetName, err)
	}

	slog.InfoContext(ctx, "Appended monthly report",
		"sheet", sheetName,
		"group_id", report.GroupID,
		"rows", len(report.Rows))
	return nil
}

var yearPrefixRe = regexp.MustCompile(`^\d{4}\b`)

// yearPrefixedName returns "<year> <base>" unless base already starts with a
// 4-digit year.
func yearPrefixedName(base string, year int) string {
	if yearPrefixRe.MatchString(base) {
		return base
	}
	return fmt.Sprintf("%d %s", year, base)
}
