package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage/memory"
)

const (
	owner    = "alice"
	outsider = "mallory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordingPublisher keeps every published event. When fail is set it
// rejects them instead.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	fail   bool
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []*amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEvent(nil), p.events...)
}

// household is a seeded memory store: one household owned by alice with a
// checking account (1000), a savings account (500), an income-only, an
// expense-only and a hybrid category, and two budgets. Both accounts are
// linked to budgetA.
type household struct {
	store     *memory.Store
	id        string
	checking  core.Account
	savings   core.Account
	salary    core.Category
	groceries core.Category
	refunds   core.Category
	budgetA   core.Budget
	budgetB   core.Budget
}

func newHousehold(t *testing.T) *household {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	h, err := store.CreateHousehold(ctx, "Home", owner)
	if err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}
	hh := &household{store: store, id: h.ID}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	hh.checking, err = store.CreateAccount(ctx, core.Account{HouseholdID: h.ID, Name: "Checking", InitialBalance: core.Cents(1000)})
	must(err)
	hh.savings, err = store.CreateAccount(ctx, core.Account{HouseholdID: h.ID, Name: "Savings", InitialBalance: core.Cents(500)})
	must(err)
	hh.salary, err = store.CreateCategory(ctx, core.Category{HouseholdID: h.ID, Name: "Salary", Types: []core.CategoryType{core.Income}})
	must(err)
	hh.groceries, err = store.CreateCategory(ctx, core.Category{HouseholdID: h.ID, Name: "Groceries", Types: []core.CategoryType{core.Expense}})
	must(err)
	hh.refunds, err = store.CreateCategory(ctx, core.Category{HouseholdID: h.ID, Name: "Refunds", Types: []core.CategoryType{core.Income, core.Expense}})
	must(err)
	hh.budgetA, err = store.CreateBudget(ctx, core.Budget{HouseholdID: h.ID, Name: "Groceries"})
	must(err)
	hh.budgetB, err = store.CreateBudget(ctx, core.Budget{HouseholdID: h.ID, Name: "Holidays"})
	must(err)
	must(store.LinkAccount(ctx, hh.budgetA.ID, hh.checking.ID))
	must(store.LinkAccount(ctx, hh.budgetA.ID, hh.savings.ID))
	return hh
}

func (hh *household) addTx(t *testing.T, account core.Account, cat core.Category, cents int64, date time.Time) core.Transaction {
	t.Helper()
	tx, err := hh.store.CreateTransaction(context.Background(), core.Transaction{
		AccountID:  account.ID,
		CategoryID: cat.ID,
		Amount:     core.Cents(cents),
		Date:       date,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return tx
}

func fixedClock(ts time.Time) Clock {
	return func() time.Time { return ts }
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}
