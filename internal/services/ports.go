package services

import (
	"context"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
)

// Ports consumed by the ledger services. storage.SQLiteRepository and
// memory.Store implement all of them.
type (
	Membership interface {
		IsMember(ctx context.Context, userID, householdID string) (bool, error)
	}

	AccountReader interface {
		GetAccount(ctx context.Context, id string) (core.Account, error)
		ListAccounts(ctx context.Context, householdID string) ([]core.Account, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, householdID string) ([]core.Category, error)
	}

	// MovementReader lists balance-affecting rows for a set of accounts with
	// date <= until. A zero until means the whole history.
	MovementReader interface {
		ListTransactions(ctx context.Context, accountIDs []string, until time.Time) ([]core.Transaction, error)
		ListTransfers(ctx context.Context, accountIDs []string, until time.Time) ([]core.Transfer, error)
	}

	BudgetReader interface {
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		IsAccountLinked(ctx context.Context, budgetID, accountID string) (bool, error)
	}

	// AllocationStore is the append-only allocation ledger. AppendAllocations
	// must commit every entry or none.
	AllocationStore interface {
		AppendAllocations(ctx context.Context, entries ...core.BudgetAllocation) ([]core.BudgetAllocation, error)
		ListAllocations(ctx context.Context, householdID string) ([]core.BudgetAllocation, error)
		ListBudgetAllocations(ctx context.Context, budgetID string) ([]core.BudgetAllocation, error)
	}

	TransferStore interface {
		CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
		UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
		DeleteTransfer(ctx context.Context, id string) error
		GetTransfer(ctx context.Context, id string) (core.Transfer, error)
		ListBudgetTransfers(ctx context.Context, budgetID string) ([]core.Transfer, error)
	}

	// EventPublisher receives a notification after each committed write.
	// The backend wires *amqp.AsyncPublisher, which only enqueues.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	}

	Store interface {
		Membership
		AccountReader
		CategoryReader
		MovementReader
		BudgetReader
		AllocationStore
		TransferStore
	}
)

// Clock returns the current time. AccountLedger uses it as the default
// upper bound for CurrentBalance.
type Clock func() time.Time

// requireMember returns Forbidden unless userID belongs to householdID.
func requireMember(ctx context.Context, m Membership, userID, householdID string) error {
	ok, err := m.IsMember(ctx, userID, householdID)
	if err != nil {
		return err
	}
	if !ok {
		return core.Forbidden(userID, householdID)
	}
	return nil
}

// publish sends ev if a publisher is configured. A failed publish is logged
// and never fails the write that already committed.
func publish(ctx context.Context, p EventPublisher, logger *log.Logger, ev *amqp.LedgerEvent) {
	if p == nil {
		logger.DebugContext(ctx, "No event publisher configured, skipping ledger event",
			log.FieldEventType, ev.Type)
		return
	}
	if err := p.PublishLedgerEvent(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventID, ev.EventID,
			log.FieldEventType, ev.Type,
			log.FieldError, err)
	}
}
