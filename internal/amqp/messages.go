package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventExpenseCreated = "expense.created"
	EventExpenseDeleted = "expense.deleted"
)

// ExpenseEventMessage is a lightweight notification that an expense changed.
// It carries only the coordinates of the affected month; the worker fetches
// the expenses from the database and recomputes the settlement snapshot.
type ExpenseEventMessage struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id"`
	CoupleID  string    `json:"couple_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(eventType, expenseID, coupleID string, year, month int) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:      eventType,
		ExpenseID: expenseID,
		CoupleID:  coupleID,
		Year:      year,
		Month:     month,
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
