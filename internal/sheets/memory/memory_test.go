package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pockets/internal/sheets"
)

func TestStoreCollectsReports(t *testing.T) {
	s := New()
	ctx := context.Background()

	report := sheets.MonthlyReport{
		GroupID:   "grp-1",
		GroupName: "casa",
		Month:     3,
		Year:      2025,
		Rows: []sheets.ReportRow{
			{Category: "Groceries", Scope: "shared", Allocated: decimal.NewFromInt(400)},
		},
	}
	if err := s.AppendMonthlyReport(ctx, report); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendMonthlyReport(ctx, report); err != nil {
		t.Fatalf("append again: %v", err)
	}

	got := s.Reports()
	if len(got) != 2 {
		t.Fatalf("stored %d reports, want 2", len(got))
	}
	if got[0].GroupName != "casa" || len(got[0].Rows) != 1 {
		t.Fatalf("unexpected report: %+v", got[0])
	}

	// The returned slice is a copy.
	got[0].GroupName = "mutated"
	if s.Reports()[0].GroupName != "casa" {
		t.Fatal("Reports() exposed internal state")
	}
}
