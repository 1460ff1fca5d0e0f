package amqp

import (
	"testing"
	"time"
)

func TestNewExpenseEventMessage(t *testing.T) {
	msg := NewExpenseEventMessage(ExpenseCreated, "exp-1", "grp-1")

	if msg.Action != ExpenseCreated {
		t.Errorf("Action = %v, want %v", msg.Action, ExpenseCreated)
	}
	if msg.ExpenseID != "exp-1" || msg.GroupID != "grp-1" {
		t.Errorf("ids = %s/%s, want exp-1/grp-1", msg.ExpenseID, msg.GroupID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestExpenseEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &ExpenseEventMessage{
		Action:    ExpenseDeleted,
		ExpenseID: "exp-9",
		GroupID:   "grp-2",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := ExpenseEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ExpenseEventMessageFromJSON() error = %v", err)
	}

	if parsed.Action != msg.Action || parsed.ExpenseID != msg.ExpenseID || parsed.GroupID != msg.GroupID {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestMonthTickMessage_JSON(t *testing.T) {
	msg := NewMonthTickMessage(6, 2025)

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := MonthTickMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("MonthTickMessageFromJSON() error = %v", err)
	}
	if parsed.Month != 6 || parsed.Year != 2025 {
		t.Errorf("parsed = %d/%d, want 6/2025", parsed.Month, parsed.Year)
	}
}

func TestMonthTickMessage_InvalidJSON(t *testing.T) {
	if _, err := MonthTickMessageFromJSON([]byte(`{"month": "june"}`)); err == nil {
		t.Error("MonthTickMessageFromJSON() should fail with invalid JSON")
	}
}
