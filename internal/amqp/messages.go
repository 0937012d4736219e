package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionGeneratedMessage announces a transaction created from a
// recurring rule. Consumers can fetch the full row by TransactionID.
type TransactionGeneratedMessage struct {
	EventID       string               `json:"event_id"`
	RuleID        string               `json:"rule_id"`
	TransactionID string               `json:"transaction_id"`
	UserID        string               `json:"user_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Type          core.TransactionType `json:"type"`
	Description   string               `json:"description"`
	Date          core.Date            `json:"transaction_date"`
	Timestamp     time.Time            `json:"timestamp"`
}

func NewTransactionGeneratedMessage(tx core.Transaction, ruleID string) *TransactionGeneratedMessage {
	return &TransactionGeneratedMessage{
		EventID:       uuid.NewString(),
		RuleID:        ruleID,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Type:          tx.Type,
		Description:   tx.Description,
		Date:          tx.Date,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionGeneratedMessageFromJSON(data []byte) (*TransactionGeneratedMessage, error) {
	var msg TransactionGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
