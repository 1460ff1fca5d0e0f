package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pockets/internal/core"
)

// allocationUser resolves the scope-qualifying user for an expense's
// allocation key: the creator for personal categories, empty for shared.
// strict controls what happens when the category row is gone: creates must
// fail, but deletes and edits of orphaned expenses proceed with the shared
// key (the matching allocations were pruned together with the category, so
// the adjustment lands on nothing).
func allocationUser(ctx context.Context, tx *sql.Tx, groupID, categoryID, creator string, strict bool) (string, error) {
	var scope, owner string
	err := tx.QueryRowContext(ctx,
		`SELECT scope, owner_id FROM categories WHERE id = ? AND group_id = ?`,
		categoryID, groupID).Scan(&scope, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		if strict {
			return "", fmt.Errorf("%w: category", core.ErrNotFound)
		}
		return "", nil
	}
	if err != nil {
		return "", mapError(fmt.Errorf("resolve category scope: %w", err))
	}
	if core.Scope(scope) == core.ScopePersonal {
		return creator, nil
	}
	return "", nil
}

// adjustSpent applies a cents delta to the allocation matching the key. An
// allocation that does not exist is not an error: spent only tracks
// allocations that exist.
func adjustSpent(ctx context.Context, tx *sql.Tx, key core.AllocationKey, deltaCents int64) error {
	if deltaCents == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE allocations SET spent_cents = spent_cents + ?
		WHERE group_id = ? AND category_id = ? AND month = ? AND year = ? AND user_id = ?`,
		deltaCents, key.GroupID, key.CategoryID, key.Month, key.Year, key.UserID)
	if err != nil {
		return mapError(fmt.Errorf("adjust allocation spent: %w", err))
	}
	return nil
}

// CreateExpense inserts the expense and increments the matching
// allocation's spent total in one transaction: neither side persists without
// the other. The allocation is keyed by the expense's own month and year.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	var every, until string
	if e.Recurrence != nil {
		every = string(e.Recurrence.Every)
		until = dateColumn(e.Recurrence.Until)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		user, err := allocationUser(ctx, tx, e.GroupID, e.CategoryID, e.CreatedBy, true)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, group_id, category_id, amount_cents, description,
				expense_date, month, year, created_by, recurrence_every, recurrence_until, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.GroupID, e.CategoryID, toCents(e.Amount), e.Description,
			dateColumn(e.Date), e.Date.Month(), e.Date.Year(), e.CreatedBy, every, until,
			unixColumn(e.CreatedAt)); err != nil {
			return mapError(fmt.Errorf("insert expense: %w", err))
		}

		key := core.AllocationKey{
			GroupID: e.GroupID, CategoryID: e.CategoryID,
			Month: e.Date.Month(), Year: e.Date.Year(), UserID: user,
		}
		return adjustSpent(ctx, tx, key, toCents(e.Amount))
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// UpdateExpense replaces the stored amount, description, date and category
// and reconciles allocation spent totals in the same transaction. When the
// allocation key is unchanged the adjustment is a single delta update, so a
// concurrent reader never observes the decrement-then-increment intermediate
// state. A month or category change debits the old allocation and credits
// the new one, still within one transaction.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var (
			oldCategory string
			oldCents    int64
			oldMonth    int
			oldYear     int
			createdBy   string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT category_id, amount_cents, month, year, created_by FROM expenses WHERE id = ? AND group_id = ?`,
			e.ID, e.GroupID).Scan(&oldCategory, &oldCents, &oldMonth, &oldYear, &createdBy)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: expense", core.ErrNotFound)
		}
		if err != nil {
			return mapError(fmt.Errorf("read expense: %w", err))
		}

		oldUser, err := allocationUser(ctx, tx, e.GroupID, oldCategory, createdBy, false)
		if err != nil {
			return err
		}
		newUser, err := allocationUser(ctx, tx, e.GroupID, e.CategoryID, createdBy, true)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE expenses
			SET category_id = ?, amount_cents = ?, description = ?, expense_date = ?, month = ?, year = ?
			WHERE id = ?`,
			e.CategoryID, toCents(e.Amount), e.Description,
			dateColumn(e.Date), e.Date.Month(), e.Date.Year(), e.ID); err != nil {
			return mapError(fmt.Errorf("update expense: %w", err))
		}

		oldKey := core.AllocationKey{
			GroupID: e.GroupID, CategoryID: oldCategory,
			Month: oldMonth, Year: oldYear, UserID: oldUser,
		}
		newKey := core.AllocationKey{
			GroupID: e.GroupID, CategoryID: e.CategoryID,
			Month: e.Date.Month(), Year: e.Date.Year(), UserID: newUser,
		}

		if oldKey == newKey {
			return adjustSpent(ctx, tx, newKey, toCents(e.Amount)-oldCents)
		}
		if err := adjustSpent(ctx, tx, oldKey, -oldCents); err != nil {
			return err
		}
		return adjustSpent(ctx, tx, newKey, toCents(e.Amount))
	})
}

// DeleteExpense removes the row and decrements the matching allocation in
// one transaction. The delete succeeds even when the allocation no longer
// exists.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var (
			groupID, categoryID, createdBy string
			cents                          int64
			month, year                    int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT group_id, category_id, amount_cents, month, year, created_by FROM expenses WHERE id = ?`,
			id).Scan(&groupID, &categoryID, &cents, &month, &year, &createdBy)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: expense", core.ErrNotFound)
		}
		if err != nil {
			return mapError(fmt.Errorf("read expense: %w", err))
		}

		user, err := allocationUser(ctx, tx, groupID, categoryID, createdBy, false)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return mapError(fmt.Errorf("delete expense: %w", err))
		}

		key := core.AllocationKey{
			GroupID: groupID, CategoryID: categoryID,
			Month: month, Year: year, UserID: user,
		}
		return adjustSpent(ctx, tx, key, -cents)
	})
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, category_id, amount_cents, description, expense_date,
			created_by, recurrence_every, recurrence_until, created_at
		FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapError(fmt.Errorf("get expense: %w", err))
	}
	return e, nil
}

// ListExpenses returns the group's expenses for a month, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, groupID string, month, year int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, category_id, amount_cents, description, expense_date,
			created_by, recurrence_every, recurrence_until, created_at
		FROM expenses
		WHERE group_id = ? AND month = ? AND year = ?
		ORDER BY expense_date DESC, created_at DESC`,
		groupID, month, year)
	if err != nil {
		return nil, mapError(fmt.Errorf("list expenses: %w", err))
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan expense: %w", err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate expenses: %w", err))
	}
	return out, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e            core.Expense
		cents        int64
		date         string
		every, until string
		createdAt    int64
	)
	if err := row.Scan(&e.ID, &e.GroupID, &e.CategoryID, &cents, &e.Description, &date,
		&e.CreatedBy, &every, &until, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.Amount = fromCents(cents)
	d, err := dateFromColumn(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = d
	if every != "" {
		u, err := dateFromColumn(until)
		if err != nil {
			return core.Expense{}, err
		}
		e.Recurrence = &core.Recurrence{Every: core.RepetitionType(every), Until: u}
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return e, nil
}
