package amqp

import (
	"encoding/json"
	"time"

	"costtracker/internal/core"
)

// CostAddedMessage announces a stored cost record.
type CostAddedMessage struct {
	CostID    int64     `json:"cost_id"`
	UserID    int64     `json:"user_id"`
	Amount    string    `json:"amount"`
	Date      string    `json:"date"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCostAddedMessage builds the event for c stamped with the current time.
func NewCostAddedMessage(c core.CostRecord) *CostAddedMessage {
	return &CostAddedMessage{
		CostID:    c.ID,
		UserID:    c.UserID,
		Amount:    c.Amount.String(),
		Date:      c.Date.String(),
		Category:  c.Category,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CostAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CostAddedMessageFromJSON decodes a message produced by ToJSON.
func CostAddedMessageFromJSON(data []byte) (*CostAddedMessage, error) {
	var msg CostAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
