package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"splitbill/internal/core"
)

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionCreatedEvent is published after a transaction is stored. It
// carries everything the ledger mirror writes, so consumers never read the
// backend.
type TransactionCreatedEvent struct {
	EventID         string               `json:"eventId"`
	Title           string               `json:"title"`
	SplitID         int64                `json:"splitId"`
	BillAmount      float64              `json:"billAmount"`
	Date            string               `json:"date"`
	TransactionType core.TransactionType `json:"transactionType"`
	PaidBy          []string             `json:"paidBy"`
	Timestamp       time.Time            `json:"timestamp"`
}

func NewTransactionCreatedEvent(tx core.Transaction) *TransactionCreatedEvent {
	payers := make([]string, 0, len(tx.PaidBy))
	for _, p := range tx.PaidBy {
		payers = append(payers, p.Person.Name)
	}
	return &TransactionCreatedEvent{
		EventID:         uuid.NewString(),
		Title:           tx.Title,
		SplitID:         tx.SplitID,
		BillAmount:      tx.BillAmount,
		Date:            tx.Date,
		TransactionType: tx.TransactionType,
		PaidBy:          payers,
		Timestamp:       time.Now(),
	}
}

func (m *TransactionCreatedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedEventFromJSON decodes and checks an event body.
func TransactionCreatedEventFromJSON(data []byte) (*TransactionCreatedEvent, error) {
	var msg TransactionCreatedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" || msg.Title == "" || msg.SplitID <= 0 {
		return nil, ErrInvalidEvent
	}
	return &msg, nil
}
