package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/storage"
)

// AllocationService sets monthly budgets and reads them back annotated with
// pacing information.
type AllocationService struct {
	storage *storage.SQLiteRepository
	ids     identity.Provider
	now     func() time.Time
}

func NewAllocationService(storage *storage.SQLiteRepository, ids identity.Provider) *AllocationService {
	return &AllocationService{storage: storage, ids: ids, now: time.Now}
}

// AllocationUpsert is one budget assignment for a category in a month.
type AllocationUpsert struct {
	CategoryID string
	Month      int
	Year       int
	Amount     decimal.Decimal
}

// AllocationView pairs a stored allocation with its pacing annotation.
type AllocationView struct {
	Allocation core.Allocation
	Pacing     core.Pacing
}

// Upsert creates or replaces the budget for one category and month. Replacing
// never touches the spent total. Personal-category budgets can only be set by
// the category's owner.
func (s *AllocationService) Upsert(ctx context.Context, groupID string, item AllocationUpsert) (core.Allocation, error) {
	principal, err := requireMember(ctx, s.ids, groupID)
	if err != nil {
		return core.Allocation{}, err
	}

	category, err := s.storage.GetCategory(ctx, item.CategoryID)
	if err != nil {
		return core.Allocation{}, err
	}
	if category.GroupID != groupID {
		return core.Allocation{}, fmt.Errorf("%w: category %s", core.ErrNotFound, item.CategoryID)
	}

	key := core.AllocationKey{
		GroupID:    groupID,
		CategoryID: item.CategoryID,
		Month:      item.Month,
		Year:       item.Year,
	}
	if category.IsPersonal() {
		if principal.ID != category.OwnerID {
			return core.Allocation{}, fmt.Errorf("%w: only the owner budgets a personal category", core.ErrForbidden)
		}
		key.UserID = principal.ID
	}

	if err := key.Validate(); err != nil {
		return core.Allocation{}, err
	}
	if err := core.ValidateBudgetAmount(item.Amount); err != nil {
		return core.Allocation{}, err
	}

	allocation, err := s.storage.UpsertAllocation(ctx, key, item.Amount)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("upsert allocation: %w", err)
	}

	slog.InfoContext(ctx, "Upserted allocation",
		"group_id", groupID,
		"category_id", item.CategoryID,
		"month", item.Month,
		"year", item.Year,
		"allocated", item.Amount.String())
	return allocation, nil
}

// BatchUpsert applies many budget assignments. Each item commits on its own;
// a failing item does not roll back the ones already applied. The returned
// error joins the per-item failures.
func (s *AllocationService) BatchUpsert(ctx context.Context, groupID string, items []AllocationUpsert) ([]core.Allocation, error) {
	var (
		applied []core.Allocation
		errs    []error
	)
	for i, item := range items {
		allocation, err := s.Upsert(ctx, groupID, item)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d (category %s): %w", i, item.CategoryID, err))
			continue
		}
		applied = append(applied, allocation)
	}
	return applied, errors.Join(errs...)
}

// GetAllocations lists the group's budgets for a month annotated with pacing.
// Month and year default to the current month when zero.
func (s *AllocationService) GetAllocations(ctx context.Context, groupID string, month, year int) ([]AllocationView, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return nil, err
	}

	today := core.DateOf(s.now())
	if month == 0 && year == 0 {
		month, year = today.Month(), today.Year()
	}

	allocations, err := s.storage.ListAllocations(ctx, groupID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}

	ref := pacingReference(month, year, today)
	views := make([]AllocationView, 0, len(allocations))
	for _, a := range allocations {
		views = append(views, AllocationView{
			Allocation: a,
			Pacing:     core.PacingFor(a, ref),
		})
	}
	return views, nil
}

// pacingReference picks the day pacing is computed against. The current month
// uses today; a past month uses its last day, so no days remain; a future
// month uses its first day, so the whole month lies ahead.
func pacingReference(month, year int, today core.Date) core.Date {
	switch {
	case year == today.Year() && month == today.Month():
		return today
	case year < today.Year() || (year == today.Year() && month < today.Month()):
		return core.NewDate(year, month+1, 0)
	default:
		return core.NewDate(year, month, 1)
	}
}
