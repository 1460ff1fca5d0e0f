package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pockets/internal/core"
)

// UpsertAllocation atomically creates or updates the allocation for the
// composite key. A new row starts with spent = 0; an existing row gets only
// its allocated amount overwritten; spent is never touched here, so
// concurrent expense writes cannot be lost. Racing creates for the same key
// serialize on the uniqueness constraint: one insert wins and the other
// lands in the ON CONFLICT branch.
func (r *SQLiteRepository) UpsertAllocation(ctx context.Context, key core.AllocationKey, amount decimal.Decimal) (core.Allocation, error) {
	if err := key.Validate(); err != nil {
		return core.Allocation{}, err
	}
	if err := core.ValidateBudgetAmount(amount); err != nil {
		return core.Allocation{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO allocations (id, group_id, category_id, month, year, user_id, allocated_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (group_id, category_id, month, year, user_id)
		DO UPDATE SET allocated_cents = excluded.allocated_cents
		RETURNING id, group_id, category_id, month, year, user_id, allocated_cents, spent_cents`,
		uuid.NewString(), key.GroupID, key.CategoryID, key.Month, key.Year, key.UserID, toCents(amount))

	a, err := scanAllocation(row)
	if err != nil {
		return core.Allocation{}, mapError(fmt.Errorf("upsert allocation: %w", err))
	}
	return a, nil
}

func (r *SQLiteRepository) GetAllocation(ctx context.Context, key core.AllocationKey) (core.Allocation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, category_id, month, year, user_id, allocated_cents, spent_cents
		FROM allocations
		WHERE group_id = ? AND category_id = ? AND month = ? AND year = ? AND user_id = ?`,
		key.GroupID, key.CategoryID, key.Month, key.Year, key.UserID)

	a, err := scanAllocation(row)
	if err != nil {
		return core.Allocation{}, mapError(fmt.Errorf("get allocation: %w", err))
	}
	return a, nil
}

// ListAllocations returns every allocation of the group for the month,
// shared and personal alike, ordered by category then user.
func (r *SQLiteRepository) ListAllocations(ctx context.Context, groupID string, month, year int) ([]core.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, category_id, month, year, user_id, allocated_cents, spent_cents
		FROM allocations
		WHERE group_id = ? AND month = ? AND year = ?
		ORDER BY category_id, user_id`,
		groupID, month, year)
	if err != nil {
		return nil, mapError(fmt.Errorf("list allocations: %w", err))
	}
	defer rows.Close()

	var out []core.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan allocation: %w", err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate allocations: %w", err))
	}
	return out, nil
}

// SumExpenses adds up the non-deleted expense amounts matching an
// allocation key. The ledger invariant says this always equals the
// allocation's spent total; the query keys on the category scope the same
// way the write path does.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, key core.AllocationKey) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM expenses
		WHERE group_id = ? AND category_id = ? AND month = ? AND year = ?`
	args := []any{key.GroupID, key.CategoryID, key.Month, key.Year}
	if key.UserID != "" {
		query += ` AND created_by = ?`
		args = append(args, key.UserID)
	}

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, mapError(fmt.Errorf("sum expenses: %w", err))
	}
	return fromCents(cents), nil
}

func scanAllocation(row rowScanner) (core.Allocation, error) {
	var (
		a                core.Allocation
		allocated, spent int64
	)
	if err := row.Scan(&a.ID, &a.GroupID, &a.CategoryID, &a.Month, &a.Year, &a.UserID, &allocated, &spent); err != nil {
		return core.Allocation{}, err
	}
	a.Allocated = fromCents(allocated)
	a.Spent = fromCents(spent)
	return a, nil
}
