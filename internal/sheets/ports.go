package sheets

import (
	"context"

	"github.com/shopspring/decimal"
)

// ReportRow is one category line of a monthly budget report.
type ReportRow struct {
	Category  string
	Scope     string
	Owner     string
	Allocated decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Status    string
}

// MonthlyReport is the exported snapshot of a group's budgets for one month.
type MonthlyReport struct {
	GroupID   string
	GroupName string
	Month     int
	Year      int
	Rows      []ReportRow
}

// ReportWriter is the outbound port for report exports.
type ReportWriter interface {
	AppendMonthlyReport(ctx context.Context, report MonthlyReport) error
}
