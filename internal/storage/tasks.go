package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pockets/internal/core"
)

func (r *SQLiteRepository) CreatePaymentTemplate(ctx context.Context, t core.PaymentTemplate) (core.PaymentTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.PaymentTemplate{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_templates (id, group_id, name, amount_hint_cents, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.GroupID, t.Name, toCents(t.AmountHint), boolColumn(t.Active), unixColumn(t.CreatedAt))
	if err != nil {
		return core.PaymentTemplate{}, mapError(fmt.Errorf("insert payment template: %w", err))
	}
	return t, nil
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_templates SET active = ? WHERE id = ?`, boolColumn(active), id)
	if err != nil {
		return mapError(fmt.Errorf("update payment template: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: payment template", core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetPaymentTemplate(ctx context.Context, id string) (core.PaymentTemplate, error) {
	var (
		t         core.PaymentTemplate
		hint      int64
		active    int
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, name, amount_hint_cents, active, created_at
		FROM payment_templates WHERE id = ?`, id).
		Scan(&t.ID, &t.GroupID, &t.Name, &hint, &active, &createdAt)
	if err != nil {
		return core.PaymentTemplate{}, mapError(fmt.Errorf("get payment template: %w", err))
	}
	t.AmountHint = fromCents(hint)
	t.Active = active != 0
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

func (r *SQLiteRepository) ListPaymentTemplates(ctx context.Context, groupID string) ([]core.PaymentTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, name, amount_hint_cents, active, created_at
		FROM payment_templates WHERE group_id = ? ORDER BY name`, groupID)
	if err != nil {
		return nil, mapError(fmt.Errorf("list payment templates: %w", err))
	}
	defer rows.Close()

	var out []core.PaymentTemplate
	for rows.Next() {
		var (
			t         core.PaymentTemplate
			hint      int64
			active    int
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.GroupID, &t.Name, &hint, &active, &createdAt); err != nil {
			return nil, mapError(fmt.Errorf("scan payment template: %w", err))
		}
		t.AmountHint = fromCents(hint)
		t.Active = active != 0
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate payment templates: %w", err))
	}
	return out, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (core.MonthlyPaymentTask, error) {
	row := r.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return core.MonthlyPaymentTask{}, mapError(fmt.Errorf("get task: %w", err))
	}
	return t, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, groupID string) ([]core.MonthlyPaymentTask, error) {
	rows, err := r.db.QueryContext(ctx, taskSelect+` WHERE group_id = ? ORDER BY template_id`, groupID)
	if err != nil {
		return nil, mapError(fmt.Errorf("list tasks: %w", err))
	}
	defer rows.Close()

	var out []core.MonthlyPaymentTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan task: %w", err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate tasks: %w", err))
	}
	return out, nil
}

// CompleteTask marks a pending task completed. The WHERE clause doubles as
// the state check: completing an already-completed task reports Conflict.
func (r *SQLiteRepository) CompleteTask(ctx context.Context, id, userID string, amount decimal.Decimal, paidOn core.Date, expenseID string) error {
	if err := core.ValidateAmount(amount); err != nil {
		return err
	}
	if err := paidOn.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_payment_tasks
		SET completed = 1, paid_amount_cents = ?, paid_date = ?, completed_by = ?, expense_id = ?
		WHERE id = ? AND completed = 0`,
		toCents(amount), dateColumn(paidOn), userID, expenseID, id)
	if err != nil {
		return mapError(fmt.Errorf("complete task: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM monthly_payment_tasks WHERE id = ?`, id).Scan(&exists); err == nil && exists > 0 {
			return fmt.Errorf("%w: task already completed this cycle", core.ErrConflict)
		}
		return fmt.Errorf("%w: task", core.ErrNotFound)
	}
	return nil
}

// ResetCompletedTasks flips every completed task not yet reset this month
// back to pending in one bulk conditional update. The last_reset_at guard
// makes a second run in the same month a no-op. The linked expense is only
// unlinked, never deleted.
func (r *SQLiteRepository) ResetCompletedTasks(ctx context.Context, monthStart, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_payment_tasks
		SET completed = 0, paid_amount_cents = 0, paid_date = '', completed_by = '', expense_id = '',
			last_reset_at = ?
		WHERE completed = 1 AND last_reset_at < ?`,
		unixColumn(now), unixColumn(monthStart))
	if err != nil {
		return 0, mapError(fmt.Errorf("reset completed tasks: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(fmt.Errorf("count reset tasks: %w", err))
	}
	return n, nil
}

// CreateMissingTasks inserts a pending task for each active template that has
// no current task row. Existing rows are left alone, so the call is
// idempotent and a crashed rollover can simply be re-run.
func (r *SQLiteRepository) CreateMissingTasks(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_payment_tasks (id, template_id, group_id, last_reset_at)
		SELECT lower(hex(randomblob(16))), t.id, t.group_id, ?
		FROM payment_templates t
		WHERE t.active = 1
		  AND NOT EXISTS (
			SELECT 1 FROM monthly_payment_tasks k
			WHERE k.template_id = t.id AND k.group_id = t.group_id
		  )`,
		unixColumn(now))
	if err != nil {
		return 0, mapError(fmt.Errorf("create missing tasks: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(fmt.Errorf("count created tasks: %w", err))
	}
	return n, nil
}

// UnlinkExpenseFromTasks clears the expense reference on any task linking
// it. Used when the expense itself is deleted.
func (r *SQLiteRepository) UnlinkExpenseFromTasks(ctx context.Context, expenseID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE monthly_payment_tasks SET expense_id = '' WHERE expense_id = ?`, expenseID)
	if err != nil {
		return mapError(fmt.Errorf("unlink expense from tasks: %w", err))
	}
	return nil
}

const taskSelect = `
	SELECT id, template_id, group_id, completed, paid_amount_cents, paid_date,
		completed_by, expense_id, last_reset_at
	FROM monthly_payment_tasks`

func scanTask(row rowScanner) (core.MonthlyPaymentTask, error) {
	var (
		t           core.MonthlyPaymentTask
		completed   int
		paid        int64
		paidDate    string
		lastResetAt int64
	)
	if err := row.Scan(&t.ID, &t.TemplateID, &t.GroupID, &completed, &paid, &paidDate,
		&t.CompletedBy, &t.ExpenseID, &lastResetAt); err != nil {
		return core.MonthlyPaymentTask{}, err
	}
	t.Completed = completed != 0
	t.PaidAmount = fromCents(paid)
	d, err := dateFromColumn(paidDate)
	if err != nil {
		return core.MonthlyPaymentTask{}, err
	}
	t.PaidDate = d
	t.LastResetAt = time.Unix(lastResetAt, 0).UTC()
	return t, nil
}

func boolColumn(b bool) int {
	if b {
		return 1
	}
	return 0
}
