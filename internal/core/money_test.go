package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 7 ", "7", true},
		{"0.01", "0.01", true},
		{"", "", false},
		{"0", "", false},
		{"-5", "", false},
		{"12.345", "", false}, // too many decimal places
		{"abc", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d (%q): expected ok, got %v", i, tc.in, err)
			}
			if want, _ := decimal.NewFromString(tc.want); !got.Equal(want) {
				t.Fatalf("case %d (%q): got %s, want %s", i, tc.in, got, want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.in)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d (%q): expected ErrInvalidInput, got %v", i, tc.in, err)
		}
	}
}

func TestValidateBudgetAmount(t *testing.T) {
	if err := ValidateBudgetAmount(decimal.Zero); err != nil {
		t.Fatalf("zero budget should be valid: %v", err)
	}
	if err := ValidateBudgetAmount(decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected error for negative budget")
	}
}
