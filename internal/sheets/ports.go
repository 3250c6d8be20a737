package sheets

import (
	"context"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
)

// Ports for outbound adapters.
type (
	// LedgerEventWriter appends one audit row per ledger event.
	LedgerEventWriter interface {
		AppendLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) (rowRef string, err error)
	}
)
