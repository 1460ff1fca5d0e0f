package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/storage"
)

// PaymentsService manages recurring payment templates and their monthly
// tasks.
type PaymentsService struct {
	storage *storage.SQLiteRepository
	ids     identity.Provider
}

func NewPaymentsService(storage *storage.SQLiteRepository, ids identity.Provider) *PaymentsService {
	return &PaymentsService{storage: storage, ids: ids}
}

// CreateTemplate registers a recurring obligation for the group. The next
// rollover materializes its first task; CreateMissingTasks can backfill one
// for the current month immediately.
func (s *PaymentsService) CreateTemplate(ctx context.Context, t core.PaymentTemplate) (core.PaymentTemplate, error) {
	if _, err := requireMember(ctx, s.ids, t.GroupID); err != nil {
		return core.PaymentTemplate{}, err
	}
	if err := t.Validate(); err != nil {
		return core.PaymentTemplate{}, err
	}

	created, err := s.storage.CreatePaymentTemplate(ctx, t)
	if err != nil {
		return core.PaymentTemplate{}, fmt.Errorf("create payment template: %w", err)
	}

	slog.InfoContext(ctx, "Created payment template",
		"template_id", created.ID,
		"group_id", created.GroupID,
		"name", created.Name)
	return created, nil
}

// SetTemplateActive enables or disables a template. Inactive templates are
// skipped by the rollover; their current task is left alone.
func (s *PaymentsService) SetTemplateActive(ctx context.Context, templateID string, active bool) error {
	groupID, err := s.templateGroup(ctx, templateID)
	if err != nil {
		return err
	}
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return err
	}
	if err := s.storage.SetTemplateActive(ctx, templateID, active); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Set template active", "template_id", templateID, "active", active)
	return nil
}

// ListTemplates returns the group's payment templates.
func (s *PaymentsService) ListTemplates(ctx context.Context, groupID string) ([]core.PaymentTemplate, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return nil, err
	}
	return s.storage.ListPaymentTemplates(ctx, groupID)
}

// ListTasks returns the group's current payment tasks.
func (s *PaymentsService) ListTasks(ctx context.Context, groupID string) ([]core.MonthlyPaymentTask, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return nil, err
	}
	return s.storage.ListTasks(ctx, groupID)
}

// CompleteTask marks a task as paid by the caller, optionally linking the
// ledger expense that settled it. Completing an already completed task is a
// conflict.
func (s *PaymentsService) CompleteTask(ctx context.Context, taskID string, amount decimal.Decimal, paidOn core.Date, expenseID string) error {
	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	principal, err := requireMember(ctx, s.ids, task.GroupID)
	if err != nil {
		return err
	}

	if err := core.ValidateAmount(amount); err != nil {
		return err
	}
	if err := paidOn.Validate(); err != nil {
		return err
	}

	if err := s.storage.CompleteTask(ctx, taskID, principal.ID, amount, paidOn, expenseID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Completed payment task",
		"task_id", taskID,
		"group_id", task.GroupID,
		"completed_by", principal.ID)
	return nil
}

func (s *PaymentsService) templateGroup(ctx context.Context, templateID string) (string, error) {
	t, err := s.storage.GetPaymentTemplate(ctx, templateID)
	if err != nil {
		return "", err
	}
	return t.GroupID, nil
}
