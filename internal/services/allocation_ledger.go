package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
)

// AllocationLedger moves household funds into and between budgets. Entries
// are append-only; totals are folded from them on every read.
//
// There is no ceiling and no per-household lock: concurrent allocations may
// push Unallocated below zero, and that is reported as is.
type AllocationLedger struct {
	store interface {
		Membership
		AccountReader
		CategoryReader
		MovementReader
		BudgetReader
		AllocationStore
	}
	publisher EventPublisher
	logger    *log.Logger
	audit     *log.StructuredLogger
}

func NewAllocationLedger(store interface {
	Membership
	AccountReader
	CategoryReader
	MovementReader
	BudgetReader
	AllocationStore
}, publisher EventPublisher) *AllocationLedger {
	logger := log.Default().WithComponent(log.ComponentAllocation)
	return &AllocationLedger{
		store:     store,
		publisher: publisher,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
	}
}

// Allocate appends a single +amount entry to budgetID.
func (l *AllocationLedger) Allocate(ctx context.Context, budgetID string, amount core.Money, actor string) (core.BudgetAllocation, error) {
	fields := log.NewFields().WithLedgerEntry("", budgetID, "", amount.Cents).WithActor(actor)

	if err := amount.Validate(); err != nil {
		l.audit.LogRejected(ctx, log.OpAllocate, err, fields)
		return core.BudgetAllocation{}, err
	}
	budget, err := l.memberBudget(ctx, budgetID, actor)
	if err != nil {
		l.audit.LogRejected(ctx, log.OpAllocate, err, fields)
		return core.BudgetAllocation{}, err
	}

	written, err := l.store.AppendAllocations(ctx, core.BudgetAllocation{BudgetID: budgetID, Amount: amount})
	if err != nil {
		return core.BudgetAllocation{}, fmt.Errorf("append allocation: %w", err)
	}
	entry := written[0]

	l.audit.LogLedgerWrite(ctx, log.OpAllocate, actor,
		log.NewFields().WithLedgerEntry(budget.HouseholdID, budgetID, "", amount.Cents))

	ev := amqp.NewLedgerEvent(amqp.AllocationCreated, budget.HouseholdID)
	ev.BudgetID = budgetID
	ev.EntityID = entry.ID
	ev.AmountCents = amount.Cents
	publish(ctx, l.publisher, l.logger, ev)

	return entry, nil
}

// Transfer moves amount from one budget to another of the same household
// as two entries, (from, -amount) and (to, +amount), committed together.
func (l *AllocationLedger) Transfer(ctx context.Context, fromBudgetID, toBudgetID string, amount core.Money, actor string) ([]core.BudgetAllocation, error) {
	fields := log.NewFields().WithLedgerEntry("", fromBudgetID, "", amount.Cents).WithActor(actor)
	fields[log.FieldCounterpart] = toBudgetID

	from, err := l.validateTransfer(ctx, fromBudgetID, toBudgetID, amount, actor)
	if err != nil {
		l.audit.LogRejected(ctx, log.OpTransfer, err, fields)
		return nil, err
	}

	written, err := l.store.AppendAllocations(ctx,
		core.BudgetAllocation{BudgetID: fromBudgetID, Amount: amount.Neg()},
		core.BudgetAllocation{BudgetID: toBudgetID, Amount: amount},
	)
	if err != nil {
		return nil, fmt.Errorf("append budget transfer: %w", err)
	}

	l.audit.LogLedgerWrite(ctx, log.OpTransfer, actor,
		log.NewFields().WithLedgerEntry(from.HouseholdID, fromBudgetID, "", amount.Cents))

	ev := amqp.NewLedgerEvent(amqp.BudgetTransferCreated, from.HouseholdID)
	ev.BudgetID = fromBudgetID
	ev.CounterpartyID = toBudgetID
	ev.AmountCents = amount.Cents
	publish(ctx, l.publisher, l.logger, ev)

	return written, nil
}

// validateTransfer runs every check before anything is written: amount,
// distinct budgets, existence, same household, then membership.
func (l *AllocationLedger) validateTransfer(ctx context.Context, fromBudgetID, toBudgetID string, amount core.Money, actor string) (core.Budget, error) {
	if err := amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	if fromBudgetID == toBudgetID {
		return core.Budget{}, core.InvalidArgument("to_budget_id", "source and destination budget are the same: "+fromBudgetID)
	}
	from, err := l.store.GetBudget(ctx, fromBudgetID)
	if err != nil {
		return core.Budget{}, err
	}
	to, err := l.store.GetBudget(ctx, toBudgetID)
	if err != nil {
		return core.Budget{}, err
	}
	if from.HouseholdID != to.HouseholdID {
		return core.Budget{}, core.InvalidArgument("to_budget_id",
			fmt.Sprintf("budget %s belongs to a different household than %s", toBudgetID, fromBudgetID))
	}
	if err := requireMember(ctx, l.store, actor, from.HouseholdID); err != nil {
		return core.Budget{}, err
	}
	return from, nil
}

// Unallocated reports the household's total funds, the sum of every
// allocation and their difference. Total funds are the accounts' initial
// balances plus income-only transactions; expenses and transfers do not
// change it.
func (l *AllocationLedger) Unallocated(ctx context.Context, householdID, actor string) (core.UnallocatedFunds, error) {
	if err := requireMember(ctx, l.store, actor, householdID); err != nil {
		return core.UnallocatedFunds{}, err
	}

	accounts, err := l.store.ListAccounts(ctx, householdID)
	if err != nil {
		return core.UnallocatedFunds{}, fmt.Errorf("list accounts: %w", err)
	}
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	var (
		cats        []core.Category
		txs         []core.Transaction
		allocations []core.BudgetAllocation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = l.store.ListCategories(gctx, householdID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = l.store.ListTransactions(gctx, ids, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = l.store.ListAllocations(gctx, householdID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.UnallocatedFunds{}, fmt.Errorf("load household %s: %w", householdID, err)
	}

	totalFunds, err := householdFunds(accounts, indexCategories(cats), txs)
	if err != nil {
		return core.UnallocatedFunds{}, err
	}
	totalAllocated := sumAllocations(allocations)

	return core.UnallocatedFunds{
		HouseholdID:    householdID,
		TotalFunds:     totalFunds,
		TotalAllocated: totalAllocated,
		Unallocated:    totalFunds.Sub(totalAllocated),
	}, nil
}

// BudgetAllocated is the net of every entry recorded against budgetID.
func (l *AllocationLedger) BudgetAllocated(ctx context.Context, budgetID, actor string) (core.Money, error) {
	entries, err := l.History(ctx, budgetID, actor)
	if err != nil {
		return core.Money{}, err
	}
	return sumAllocations(entries), nil
}

// History lists the budget's entries in the order they were written.
func (l *AllocationLedger) History(ctx context.Context, budgetID, actor string) ([]core.BudgetAllocation, error) {
	if _, err := l.memberBudget(ctx, budgetID, actor); err != nil {
		return nil, err
	}
	entries, err := l.store.ListBudgetAllocations(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list allocations for budget %s: %w", budgetID, err)
	}
	return entries, nil
}

func (l *AllocationLedger) memberBudget(ctx context.Context, budgetID, actor string) (core.Budget, error) {
	budget, err := l.store.GetBudget(ctx, budgetID)
	if err != nil {
		return core.Budget{}, err
	}
	if err := requireMember(ctx, l.store, actor, budget.HouseholdID); err != nil {
		return core.Budget{}, err
	}
	return budget, nil
}

func householdFunds(accounts []core.Account, cats map[string]core.Category, txs []core.Transaction) (core.Money, error) {
	var total core.Money
	for _, a := range accounts {
		total = total.Add(a.InitialBalance)
	}
	for _, tx := range txs {
		cat, ok := cats[tx.CategoryID]
		if !ok {
			return core.Money{}, core.NotFound("category", tx.CategoryID)
		}
		if cat.IsIncomeOnly() {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func sumAllocations(entries []core.BudgetAllocation) core.Money {
	var total core.Money
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
