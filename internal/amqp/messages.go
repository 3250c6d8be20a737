package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a committed ledger write.
type EventType string

const (
	AllocationCreated      EventType = "allocation.created"
	BudgetTransferCreated  EventType = "budget_transfer.created"
	AccountTransferCreated EventType = "account_transfer.created"
	AccountTransferUpdated EventType = "account_transfer.updated"
	AccountTransferDeleted EventType = "account_transfer.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case AllocationCreated, BudgetTransferCreated,
		AccountTransferCreated, AccountTransferUpdated, AccountTransferDeleted:
		return true
	default:
		return false
	}
}

// LedgerEvent is published after a ledger write commits. It is a
// notification for downstream exporters; balances are never rebuilt from it.
//
// For budget transfers BudgetID is the source budget and CounterpartyID the
// destination. For account transfers AccountID is the source account and
// CounterpartyID the destination; EntityID is the transfer id.
type LedgerEvent struct {
	EventID        string    `json:"event_id"`
	Type           EventType `json:"type"`
	HouseholdID    string    `json:"household_id"`
	BudgetID       string    `json:"budget_id,omitempty"`
	AccountID      string    `json:"account_id,omitempty"`
	CounterpartyID string    `json:"counterparty_id,omitempty"`
	EntityID       string    `json:"entity_id,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewLedgerEvent stamps a fresh event id and the current time.
func NewLedgerEvent(t EventType, householdID string) *LedgerEvent {
	return &LedgerEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		HouseholdID: householdID,
		OccurredAt:  time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" {
		return nil, fmt.Errorf("ledger event without event_id")
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown ledger event type %q", msg.Type)
	}
	return &msg, nil
}
