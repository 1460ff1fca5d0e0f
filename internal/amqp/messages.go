package amqp

import (
	"encoding/json"
	"time"
)

// Expense event actions published on the ledger events routing key.
const (
	ExpenseCreated = "created"
	ExpenseUpdated = "updated"
	ExpenseDeleted = "deleted"
)

// ExpenseEventMessage notifies downstream consumers that the ledger changed.
// It carries identifiers only; consumers fetch the current state from the
// store, so a stale or duplicated delivery is harmless.
type ExpenseEventMessage struct {
	Action    string    `json:"action"`
	ExpenseID string    `json:"expense_id"`
	GroupID   string    `json:"group_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(action, expenseID, groupID string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Action:    action,
		ExpenseID: expenseID,
		GroupID:   groupID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MonthTickMessage is the scheduler trigger: published once shortly after a
// month begins, consumed by the rollover worker. Rollover is idempotent, so
// redelivery or an extra tick in the same month is a no-op.
type MonthTickMessage struct {
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthTickMessage(month, year int) *MonthTickMessage {
	return &MonthTickMessage{Month: month, Year: year, Timestamp: time.Now()}
}

func (m *MonthTickMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthTickMessageFromJSON(data []byte) (*MonthTickMessage, error) {
	var msg MonthTickMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
