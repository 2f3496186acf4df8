// Package amqp publishes post-commit ledger mutation events for the
// read-side analytics consumers. Events are emitted only after the ledger
// transaction commits, so a consumer never observes an intermediate
// revert/apply state.
package amqp

import (
	"encoding/json"
	"time"
)

// Event names carried in EntryEventMessage.
const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
)

// EntryEventMessage describes one committed ledger mutation. Amounts are in
// cents; dates are YYYY-MM-DD.
type EntryEventMessage struct {
	Event       string    `json:"event"`
	EntryID     string    `json:"entry_id"`
	OwnerID     string    `json:"owner_id"`
	AccountID   string    `json:"account_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryEventMessage creates a message stamped with the current time.
func NewEntryEventMessage(event, entryID, ownerID, accountID, categoryID, kind string, amountCents int64, date string) *EntryEventMessage {
	return &EntryEventMessage{
		Event:       event,
		EntryID:     entryID,
		OwnerID:     ownerID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		Kind:        kind,
		AmountCents: amountCents,
		Date:        date,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON serializes the message for publishing.
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON deserializes a consumed message.
func EntryEventFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
