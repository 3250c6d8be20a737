package sheets

import (
	"errors"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

// Header is the first row of a ledger export sheet. LedgerRow fills the
// columns in the same order.
var Header = []any{
	"Occurred at", "Type", "Household", "Budget", "Account",
	"Counterparty", "Entity", "Amount", "Event",
}

const timestampLayout = "2006-01-02 15:04:05"

// LedgerRow renders an event as sheet cells. The amount is written as a
// two-decimal string so USER_ENTERED input keeps it exact.
func LedgerRow(ev *amqp.LedgerEvent) ([]any, error) {
	if ev == nil {
		return nil, errors.New("nil ledger event")
	}
	if ev.EventID == "" {
		return nil, core.InvalidArgument("event_id", "cannot be empty")
	}
	if !ev.Type.IsValid() {
		return nil, core.InvalidArgument("type", "unknown ledger event type "+string(ev.Type))
	}
	return []any{
		ev.OccurredAt.UTC().Format(timestampLayout),
		string(ev.Type),
		ev.HouseholdID,
		ev.BudgetID,
		ev.AccountID,
		ev.CounterpartyID,
		ev.EntityID,
		core.Cents(ev.AmountCents).String(),
		ev.EventID,
	}, nil
}

// ParseTimestamp reads back the first column of a ledger row.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, time.UTC)
}
