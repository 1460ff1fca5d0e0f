package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCategoryValidate(t *testing.T) {
	if err := SharedCategory("g1", "Groceries").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := PersonalCategory("g1", "u1", "Hobby").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{GroupID: "", Name: "x", Scope: ScopeShared},
		{GroupID: "g1", Name: "", Scope: ScopeShared},
		{GroupID: "g1", Name: "x", Scope: ScopeShared, OwnerID: "u1"},   // shared with owner
		{GroupID: "g1", Name: "x", Scope: ScopePersonal},                // personal without owner
		{GroupID: "g1", Name: "x", Scope: Scope("household")},           // unknown scope
		{GroupID: "g1", Name: "x", Scope: ScopeShared, LimitHint: dec("-1")},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAllocationKeyValidate(t *testing.T) {
	good := AllocationKey{GroupID: "g1", CategoryID: "c1", Month: 6, Year: 2025}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []AllocationKey{
		{CategoryID: "c1", Month: 6, Year: 2025},
		{GroupID: "g1", Month: 6, Year: 2025},
		{GroupID: "g1", CategoryID: "c1", Month: 0, Year: 2025},
		{GroupID: "g1", CategoryID: "c1", Month: 13, Year: 2025},
		{GroupID: "g1", CategoryID: "c1", Month: 6, Year: 0},
	}
	for i, k := range bads {
		if err := k.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestAllocationRemaining(t *testing.T) {
	a := Allocation{Allocated: dec("100"), Spent: dec("130")}
	if !a.Remaining().Equal(dec("-30")) {
		t.Fatalf("got %s, want -30", a.Remaining())
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		GroupID:    "g1",
		CategoryID: "c1",
		Amount:     decimal.NewFromInt(12),
		Date:       NewDate(2025, 5, 2),
		CreatedBy:  "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	recurring := good
	recurring.Recurrence = &Recurrence{Every: Monthly}
	if err := recurring.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	recurring.Recurrence = &Recurrence{Every: "fortnightly"}
	if err := recurring.Validate(); err == nil {
		t.Fatalf("expected error for unknown repetition")
	}

	bads := []Expense{
		{CategoryID: "c1", Amount: dec("1"), Date: NewDate(2025, 5, 2), CreatedBy: "u1"},
		{GroupID: "g1", Amount: dec("1"), Date: NewDate(2025, 5, 2), CreatedBy: "u1"},
		{GroupID: "g1", CategoryID: "c1", Amount: dec("0"), Date: NewDate(2025, 5, 2), CreatedBy: "u1"},
		{GroupID: "g1", CategoryID: "c1", Amount: dec("-3"), Date: NewDate(2025, 5, 2), CreatedBy: "u1"},
		{GroupID: "g1", CategoryID: "c1", Amount: dec("1"), CreatedBy: "u1"}, // zero date
		{GroupID: "g1", CategoryID: "c1", Amount: dec("1"), Date: NewDate(2025, 5, 2)},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentTemplateValidate(t *testing.T) {
	good := PaymentTemplate{GroupID: "g1", Name: "Rent", AmountHint: dec("900"), Active: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (PaymentTemplate{GroupID: "g1", Name: "  "}).Validate(); err == nil {
		t.Fatalf("expected error for blank name")
	}
}
