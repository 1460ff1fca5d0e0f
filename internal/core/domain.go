package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Scope says whether a category (and its allocations) belongs to the whole
// group or to a single member.
type Scope string

const (
	ScopeShared   Scope = "shared"
	ScopePersonal Scope = "personal"
)

// Role of a principal inside a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleNone   Role = ""
)

// Repetition frequencies for recurring expenses.
const (
	Monthly RepetitionType = "monthly"
	Yearly  RepetitionType = "yearly"
	Weekly  RepetitionType = "weekly"
	Daily   RepetitionType = "daily"
)

type (
	RepetitionType string

	// Category is a spending pocket. Shared categories are visible and
	// editable by every group member; personal categories are owned by one
	// member but stay visible to the rest of the group (transparency
	// policy). OwnerID is non-empty exactly when Scope is personal; use
	// the SharedCategory/PersonalCategory constructors so the pairing
	// cannot drift.
	Category struct {
		ID        string
		GroupID   string
		Name      string
		Scope     Scope
		OwnerID   string
		LimitHint decimal.Decimal // optional suggested monthly budget, zero when unset
		CreatedAt time.Time
	}

	// Allocation is the budget for one category in one month. The composite
	// key is (group, category, month, year, user) where UserID is set only
	// for personal-category allocations. Spent is maintained exclusively by
	// the expense ledger and always equals the sum of non-deleted expense
	// amounts matching the key.
	Allocation struct {
		ID         string
		GroupID    string
		CategoryID string
		Month      int // 1..12
		Year       int
		UserID     string // empty for shared-scope allocations
		Allocated  decimal.Decimal
		Spent      decimal.Decimal
	}

	// AllocationKey identifies at most one Allocation row.
	AllocationKey struct {
		GroupID    string
		CategoryID string
		Month      int
		Year       int
		UserID     string
	}

	// Recurrence configures how an expense repeats.
	Recurrence struct {
		Every RepetitionType
		Until Date // optional end date
	}

	// Expense is one entry in the ledger. Every create, amount edit and
	// delete adjusts exactly one Allocation's Spent total.
	Expense struct {
		ID          string
		GroupID     string
		CategoryID  string
		Amount      decimal.Decimal
		Description string
		Date        Date
		CreatedBy   string
		Recurrence  *Recurrence // nil for one-off expenses
		CreatedAt   time.Time
	}

	// PaymentTemplate defines a recurring shared obligation (rent, power,
	// internet) the group settles every month.
	PaymentTemplate struct {
		ID         string
		GroupID    string
		Name       string
		AmountHint decimal.Decimal
		Active     bool
		CreatedAt  time.Time
	}

	// MonthlyPaymentTask is the current cycle of one template in one group.
	// There is at most one task per (template, group); rollover resets the
	// existing row instead of creating a second one. LastResetAt decides
	// eligibility for the next rollover.
	MonthlyPaymentTask struct {
		ID          string
		TemplateID  string
		GroupID     string
		Completed   bool
		PaidAmount  decimal.Decimal
		PaidDate    Date
		CompletedBy string
		ExpenseID   string // optional link to the settling expense
		LastResetAt time.Time
	}
)

// SharedCategory builds a group-wide category.
func SharedCategory(groupID, name string) Category {
	return Category{GroupID: groupID, Name: name, Scope: ScopeShared}
}

// PersonalCategory builds a category owned by a single member.
func PersonalCategory(groupID, ownerID, name string) Category {
	return Category{GroupID: groupID, Name: name, Scope: ScopePersonal, OwnerID: ownerID}
}

func (c Category) IsPersonal() bool { return c.Scope == ScopePersonal }

func (c Category) Validate() error {
	if c.GroupID == "" {
		return fmt.Errorf("%w: category group is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if len(c.Name) > 100 {
		return fmt.Errorf("%w: category name too long (max 100 characters)", ErrInvalidInput)
	}
	switch c.Scope {
	case ScopeShared:
		if c.OwnerID != "" {
			return fmt.Errorf("%w: shared category cannot have an owner", ErrInvalidInput)
		}
	case ScopePersonal:
		if c.OwnerID == "" {
			return fmt.Errorf("%w: personal category requires an owner", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, c.Scope)
	}
	if !c.LimitHint.IsZero() {
		if err := ValidateBudgetAmount(c.LimitHint); err != nil {
			return err
		}
	}
	return nil
}

// Key returns the allocation's composite key.
func (a Allocation) Key() AllocationKey {
	return AllocationKey{
		GroupID:    a.GroupID,
		CategoryID: a.CategoryID,
		Month:      a.Month,
		Year:       a.Year,
		UserID:     a.UserID,
	}
}

// Remaining is the unspent part of the budget; negative when over-spent.
func (a Allocation) Remaining() decimal.Decimal {
	return a.Allocated.Sub(a.Spent)
}

func (k AllocationKey) Validate() error {
	if k.GroupID == "" {
		return fmt.Errorf("%w: allocation group is required", ErrInvalidInput)
	}
	if k.CategoryID == "" {
		return fmt.Errorf("%w: allocation category is required", ErrInvalidInput)
	}
	if k.Month < 1 || k.Month > 12 {
		return fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidInput, k.Month)
	}
	if k.Year < 1 {
		return fmt.Errorf("%w: year is required", ErrInvalidInput)
	}
	return nil
}

func (r Recurrence) Validate() error {
	switch r.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: unknown repetition type %q", ErrInvalidInput, r.Every)
	}
	return nil
}

func (e Expense) Validate() error {
	if e.GroupID == "" {
		return fmt.Errorf("%w: expense group is required", ErrInvalidInput)
	}
	if e.CategoryID == "" {
		return fmt.Errorf("%w: expense category is required", ErrInvalidInput)
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.CreatedBy == "" {
		return fmt.Errorf("%w: expense creator is required", ErrInvalidInput)
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t PaymentTemplate) Validate() error {
	if t.GroupID == "" {
		return fmt.Errorf("%w: template group is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if !t.AmountHint.IsZero() {
		if err := ValidateBudgetAmount(t.AmountHint); err != nil {
			return err
		}
	}
	return nil
}
