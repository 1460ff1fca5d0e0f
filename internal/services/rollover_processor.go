package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pockets/internal/core"
	"pockets/internal/storage"
)

// RolloverProcessor resets the monthly payment tasks at each month boundary.
// Both steps are idempotent, so re-running for the same month, after a crash
// or a redelivered tick, is harmless.
type RolloverProcessor struct {
	storage *storage.SQLiteRepository
}

func NewRolloverProcessor(storage *storage.SQLiteRepository) *RolloverProcessor {
	return &RolloverProcessor{storage: storage}
}

// RolloverResult summarizes one rollover run.
type RolloverResult struct {
	Month   int
	Year    int
	Reset   int64
	Created int64
}

// PerformMonthlyRollover reopens completed tasks whose last reset predates
// the current month and backfills tasks for active templates that have none
// yet. Nothing to do is a success, not an error. Both steps run even when
// the first fails; the returned error joins the failures.
func (p *RolloverProcessor) PerformMonthlyRollover(ctx context.Context, now time.Time) (RolloverResult, error) {
	// Stored reset timestamps are absolute instants, so the month and its
	// boundary must come from the same UTC frame regardless of now's zone.
	today := core.DateOf(now.UTC())
	result := RolloverResult{Month: today.Month(), Year: today.Year()}
	monthStart := core.MonthStart(result.Month, result.Year)

	var errs []error

	reset, err := p.storage.ResetCompletedTasks(ctx, monthStart, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("reset completed tasks: %w", err))
	}
	result.Reset = reset

	created, err := p.storage.CreateMissingTasks(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("create missing tasks: %w", err))
	}
	result.Created = created

	slog.InfoContext(ctx, "Monthly rollover complete",
		"month", result.Month,
		"year", result.Year,
		"reset", result.Reset,
		"created", result.Created)

	return result, errors.Join(errs...)
}
