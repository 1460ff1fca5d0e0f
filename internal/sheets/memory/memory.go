// Package memory is the in-process ReportWriter used by tests and local
// development when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"pockets/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	reports []sheets.MonthlyReport
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendMonthlyReport(_ context.Context, report sheets.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []sheets.MonthlyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.MonthlyReport(nil), s.reports...)
}
