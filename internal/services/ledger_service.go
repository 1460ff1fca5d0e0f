package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"pockets/internal/amqp"
	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/storage"
)

// LedgerService orchestrates expense operations across SQLite and AMQP.
// Every mutation keeps the matching allocation's spent total in step; the
// event published afterwards is best effort and never fails the request.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	ids        identity.Provider
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewLedgerService(storage *storage.SQLiteRepository, ids identity.Provider, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		ids:        ids,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// ExpensePatch carries the fields of an expense an update may change. Nil
// fields are left as they are.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Description *string
	Date        *core.Date
	CategoryID  *string
}

// RecordExpense appends an expense to the ledger and charges the matching
// allocation in the same transaction. Expenses in a personal category can
// only be recorded by the category's owner.
func (s *LedgerService) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	principal, err := requireMember(ctx, s.ids, e.GroupID)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedBy = principal.ID

	if err := s.checkCategoryAccess(ctx, e.GroupID, e.CategoryID, principal); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record expense: %w", err)
	}

	s.publishEvent(ctx, amqp.ExpenseCreated, created.ID, created.GroupID)

	slog.InfoContext(ctx, "Recorded expense",
		"expense_id", created.ID,
		"group_id", created.GroupID,
		"category_id", created.CategoryID,
		"amount", created.Amount.String())
	return created, nil
}

// UpdateExpense applies a patch to an existing expense. Amount, date and
// category changes re-balance the affected allocations atomically. Only the
// expense's creator can edit it.
func (s *LedgerService) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	existing, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	principal, err := requireMember(ctx, s.ids, existing.GroupID)
	if err != nil {
		return core.Expense{}, err
	}
	if principal.ID != existing.CreatedBy {
		return core.Expense{}, fmt.Errorf("%w: only the creator can edit an expense", core.ErrForbidden)
	}

	updated := existing
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	if patch.CategoryID != nil && *patch.CategoryID != existing.CategoryID {
		updated.CategoryID = *patch.CategoryID
		if err := s.checkCategoryAccess(ctx, updated.GroupID, updated.CategoryID, principal); err != nil {
			return core.Expense{}, err
		}
	}

	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.storage.UpdateExpense(ctx, updated); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publishEvent(ctx, amqp.ExpenseUpdated, updated.ID, updated.GroupID)
	return updated, nil
}

// DeleteExpense removes an expense, refunds its allocation and detaches it
// from any payment task that linked it. Only the creator can delete.
func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	existing, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	principal, err := requireMember(ctx, s.ids, existing.GroupID)
	if err != nil {
		return err
	}
	if principal.ID != existing.CreatedBy {
		return fmt.Errorf("%w: only the creator can delete an expense", core.ErrForbidden)
	}

	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := s.storage.UnlinkExpenseFromTasks(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to unlink expense from tasks",
			"expense_id", id, "error", err)
	}

	s.publishEvent(ctx, amqp.ExpenseDeleted, id, existing.GroupID)

	slog.InfoContext(ctx, "Deleted expense", "expense_id", id, "group_id", existing.GroupID)
	return nil
}

// ListExpenses returns the group's ledger for a month, newest first. Month
// and year default to the current month when zero.
func (s *LedgerService) ListExpenses(ctx context.Context, groupID string, month, year int) ([]core.Expense, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return nil, err
	}
	if month == 0 && year == 0 {
		today := core.DateOf(s.now())
		month, year = today.Month(), today.Year()
	}
	return s.storage.ListExpenses(ctx, groupID, month, year)
}

// GetExpense returns one ledger entry, to members of its group only.
func (s *LedgerService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if _, err := requireMember(ctx, s.ids, e.GroupID); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *LedgerService) checkCategoryAccess(ctx context.Context, groupID, categoryID string, principal identity.Principal) error {
	category, err := s.storage.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if category.GroupID != groupID {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, categoryID)
	}
	if category.IsPersonal() && category.OwnerID != principal.ID {
		return fmt.Errorf("%w: category %s belongs to another member", core.ErrForbidden, categoryID)
	}
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, action, expenseID, groupID string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping expense event", "action", action)
		return
	}
	if err := s.amqpClient.PublishExpenseEvent(ctx, action, expenseID, groupID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"action", action,
			"expense_id", expenseID,
			"error", err)
	}
}

// Close releases the storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
