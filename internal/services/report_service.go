package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/sheets"
	"pockets/internal/storage"
)

// ReportService snapshots a group's budgets for one month and hands them to
// the configured report writer, typically a spreadsheet.
type ReportService struct {
	storage *storage.SQLiteRepository
	ids     identity.Provider
	writer  sheets.ReportWriter
	now     func() time.Time
}

func NewReportService(storage *storage.SQLiteRepository, ids identity.Provider, writer sheets.ReportWriter) *ReportService {
	return &ReportService{storage: storage, ids: ids, writer: writer, now: time.Now}
}

// ExportMonthlyReport writes one row per budgeted category to the report
// sheet. Month and year default to the current month when zero.
func (s *ReportService) ExportMonthlyReport(ctx context.Context, groupID string, month, year int) (sheets.MonthlyReport, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return sheets.MonthlyReport{}, err
	}
	if s.writer == nil {
		return sheets.MonthlyReport{}, fmt.Errorf("%w: no report writer configured", core.ErrInvalidInput)
	}

	if month == 0 && year == 0 {
		today := core.DateOf(s.now())
		month, year = today.Month(), today.Year()
	}

	group, err := s.storage.GetGroup(ctx, groupID)
	if err != nil {
		return sheets.MonthlyReport{}, err
	}
	allocations, err := s.storage.ListAllocations(ctx, groupID, month, year)
	if err != nil {
		return sheets.MonthlyReport{}, fmt.Errorf("list allocations: %w", err)
	}
	categories, err := s.storage.ListCategories(ctx, groupID)
	if err != nil {
		return sheets.MonthlyReport{}, fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	report := sheets.MonthlyReport{
		GroupID:   groupID,
		GroupName: group.Name,
		Month:     month,
		Year:      year,
	}
	for _, a := range allocations {
		category, ok := byID[a.CategoryID]
		if !ok {
			// Pruned category; its allocation row cannot name itself.
			category = core.Category{Name: a.CategoryID}
		}
		report.Rows = append(report.Rows, sheets.ReportRow{
			Category:  category.Name,
			Scope:     string(category.Scope),
			Owner:     a.UserID,
			Allocated: a.Allocated,
			Spent:     a.Spent,
			Remaining: a.Remaining(),
			Status:    string(core.Classify(a.Allocated, a.Spent)),
		})
	}

	if err := s.writer.AppendMonthlyReport(ctx, report); err != nil {
		return sheets.MonthlyReport{}, fmt.Errorf("append monthly report: %w", err)
	}

	slog.InfoContext(ctx, "Exported monthly report",
		"group_id", groupID,
		"month", month,
		"year", year,
		"rows", len(report.Rows))
	return report, nil
}
