package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
)

// TransferInput describes an account-to-account transfer.
type TransferInput struct {
	BudgetID      string
	FromAccountID string
	ToAccountID   string
	Amount        core.Money
	Date          time.Time
	Notes         string
}

// TransferCoordinator records money moved between two accounts linked to
// the same budget. Balances pick transfers up on the next read.
type TransferCoordinator struct {
	store interface {
		Membership
		AccountReader
		BudgetReader
		TransferStore
	}
	publisher EventPublisher
	logger    *log.Logger
	audit     *log.StructuredLogger
}

func NewTransferCoordinator(store interface {
	Membership
	AccountReader
	BudgetReader
	TransferStore
}, publisher EventPublisher) *TransferCoordinator {
	logger := log.Default().WithComponent(log.ComponentTransfer)
	return &TransferCoordinator{
		store:     store,
		publisher: publisher,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
	}
}

func (c *TransferCoordinator) Create(ctx context.Context, actor string, in TransferInput) (core.Transfer, error) {
	t, budget, err := c.validate(ctx, actor, in)
	if err != nil {
		c.audit.LogRejected(ctx, log.OpCreate, err, inputFields(in, actor))
		return core.Transfer{}, err
	}

	created, err := c.store.CreateTransfer(ctx, t)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("create transfer: %w", err)
	}

	c.audit.LogLedgerWrite(ctx, log.OpCreate, actor, transferFields(created, budget.HouseholdID))
	c.publish(ctx, amqp.AccountTransferCreated, budget.HouseholdID, created)
	return created, nil
}

// Update rewrites the transfer. The actor must belong to the household of
// both the stored and the new budget.
func (c *TransferCoordinator) Update(ctx context.Context, actor, id string, in TransferInput) (core.Transfer, error) {
	existing, err := c.Get(ctx, actor, id)
	if err != nil {
		return core.Transfer{}, err
	}

	t, budget, err := c.validate(ctx, actor, in)
	if err != nil {
		c.audit.LogRejected(ctx, log.OpUpdate, err, inputFields(in, actor))
		return core.Transfer{}, err
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt

	updated, err := c.store.UpdateTransfer(ctx, t)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("update transfer %s: %w", id, err)
	}

	c.audit.LogLedgerWrite(ctx, log.OpUpdate, actor, transferFields(updated, budget.HouseholdID))
	c.publish(ctx, amqp.AccountTransferUpdated, budget.HouseholdID, updated)
	return updated, nil
}

func (c *TransferCoordinator) Delete(ctx context.Context, actor, id string) error {
	existing, err := c.store.GetTransfer(ctx, id)
	if err != nil {
		return err
	}
	budget, err := c.memberBudget(ctx, actor, existing.BudgetID)
	if err != nil {
		return err
	}

	if err := c.store.DeleteTransfer(ctx, id); err != nil {
		return fmt.Errorf("delete transfer %s: %w", id, err)
	}

	c.audit.LogLedgerWrite(ctx, log.OpDelete, actor, transferFields(existing, budget.HouseholdID))
	c.publish(ctx, amqp.AccountTransferDeleted, budget.HouseholdID, existing)
	return nil
}

func (c *TransferCoordinator) Get(ctx context.Context, actor, id string) (core.Transfer, error) {
	t, err := c.store.GetTransfer(ctx, id)
	if err != nil {
		return core.Transfer{}, err
	}
	if _, err := c.memberBudget(ctx, actor, t.BudgetID); err != nil {
		return core.Transfer{}, err
	}
	return t, nil
}

// List returns the budget's transfers, oldest first.
func (c *TransferCoordinator) List(ctx context.Context, actor, budgetID string) ([]core.Transfer, error) {
	if _, err := c.memberBudget(ctx, actor, budgetID); err != nil {
		return nil, err
	}
	out, err := c.store.ListBudgetTransfers(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list transfers for budget %s: %w", budgetID, err)
	}
	return out, nil
}

// validate checks the input fields, then the budget and membership, then
// that both accounts exist in the budget's household and are linked to it.
func (c *TransferCoordinator) validate(ctx context.Context, actor string, in TransferInput) (core.Transfer, core.Budget, error) {
	t := core.Transfer{
		BudgetID:      in.BudgetID,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Date:          in.Date,
		Notes:         in.Notes,
	}
	if err := t.Validate(); err != nil {
		return core.Transfer{}, core.Budget{}, err
	}

	budget, err := c.memberBudget(ctx, actor, in.BudgetID)
	if err != nil {
		return core.Transfer{}, core.Budget{}, err
	}

	for _, side := range []struct{ field, id string }{
		{"from_account_id", in.FromAccountID},
		{"to_account_id", in.ToAccountID},
	} {
		account, err := c.store.GetAccount(ctx, side.id)
		if err != nil {
			return core.Transfer{}, core.Budget{}, err
		}
		if account.HouseholdID != budget.HouseholdID {
			return core.Transfer{}, core.Budget{}, core.InvalidArgument(side.field,
				fmt.Sprintf("account %s belongs to a different household than budget %s", side.id, budget.ID))
		}
		linked, err := c.store.IsAccountLinked(ctx, budget.ID, side.id)
		if err != nil {
			return core.Transfer{}, core.Budget{}, fmt.Errorf("check budget link: %w", err)
		}
		if !linked {
			return core.Transfer{}, core.Budget{}, core.InvalidArgument(side.field,
				fmt.Sprintf("account %s is not linked to budget %s", side.id, budget.ID))
		}
	}
	return t, budget, nil
}

func (c *TransferCoordinator) memberBudget(ctx context.Context, actor, budgetID string) (core.Budget, error) {
	budget, err := c.store.GetBudget(ctx, budgetID)
	if err != nil {
		return core.Budget{}, err
	}
	if err := requireMember(ctx, c.store, actor, budget.HouseholdID); err != nil {
		return core.Budget{}, err
	}
	return budget, nil
}

func (c *TransferCoordinator) publish(ctx context.Context, typ amqp.EventType, householdID string, t core.Transfer) {
	ev := amqp.NewLedgerEvent(typ, householdID)
	ev.BudgetID = t.BudgetID
	ev.AccountID = t.FromAccountID
	ev.CounterpartyID = t.ToAccountID
	ev.EntityID = t.ID
	ev.AmountCents = t.Amount.Cents
	publish(ctx, c.publisher, c.logger, ev)
}

func transferFields(t core.Transfer, householdID string) log.LogFields {
	f := log.NewFields().WithLedgerEntry(householdID, t.BudgetID, t.FromAccountID, t.Amount.Cents)
	f[log.FieldCounterpart] = t.ToAccountID
	f[log.FieldTransferID] = t.ID
	return f
}

func inputFields(in TransferInput, actor string) log.LogFields {
	f := log.NewFields().WithLedgerEntry("", in.BudgetID, in.FromAccountID, in.Amount.Cents).WithActor(actor)
	f[log.FieldCounterpart] = in.ToAccountID
	return f
}
