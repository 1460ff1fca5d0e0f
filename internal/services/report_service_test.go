package services

import (
	"errors"
	"testing"

	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/sheets/memory"
)

func TestExportMonthlyReport(t *testing.T) {
	env := newTestEnv(t)
	group, shared, personal := seedGroup(t, env)

	if _, err := env.budgets.Upsert(as("alice", group.ID), group.ID,
		AllocationUpsert{CategoryID: shared.ID, Month: 3, Year: 2025, Amount: dec("400")}); err != nil {
		t.Fatalf("upsert shared: %v", err)
	}
	if _, err := env.budgets.Upsert(as("bob", group.ID), group.ID,
		AllocationUpsert{CategoryID: personal.ID, Month: 3, Year: 2025, Amount: dec("120")}); err != nil {
		t.Fatalf("upsert personal: %v", err)
	}
	if _, err := env.ledger.RecordExpense(as("alice", group.ID), core.Expense{
		GroupID:    group.ID,
		CategoryID: shared.ID,
		Amount:     dec("350"),
		Date:       core.NewDate(2025, 3, 12),
	}); err != nil {
		t.Fatalf("record expense: %v", err)
	}

	writer := memory.New()
	reports := NewReportService(env.repo, identity.NewStoreProvider(env.repo), writer)

	report, err := reports.ExportMonthlyReport(as("alice", group.ID), group.ID, 3, 2025)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(report.Rows))
	}
	if report.GroupName != "casa" {
		t.Fatalf("group name = %q, want casa", report.GroupName)
	}

	var sawCritical bool
	for _, row := range report.Rows {
		if row.Category == "Groceries" {
			if row.Status != string(core.StatusCritical) {
				t.Fatalf("groceries status = %s, want critical", row.Status)
			}
			if !row.Remaining.Equal(dec("50")) {
				t.Fatalf("groceries remaining = %s, want 50", row.Remaining)
			}
			sawCritical = true
		}
	}
	if !sawCritical {
		t.Fatal("report missing the Groceries row")
	}

	if got := len(writer.Reports()); got != 1 {
		t.Fatalf("writer stored %d reports, want 1", got)
	}

	_, err = reports.ExportMonthlyReport(as("mallory", group.ID), group.ID, 3, 2025)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("non-member export: err = %v, want ErrForbidden", err)
	}
}
