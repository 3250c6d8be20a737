package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/timeseries"
)

func TestAccountLedger_ExpenseReducesBalance(t *testing.T) {
	hh := newHousehold(t)
	hh.addTx(t, hh.checking, hh.groceries, 200, day(2024, 1, 5))

	ledger := NewAccountLedger(hh.store, fixedClock(day(2024, 1, 10)))
	got, err := ledger.CurrentBalance(context.Background(), hh.checking.ID)
	if err != nil {
		t.Fatalf("CurrentBalance() error = %v", err)
	}
	if got.Cents != 800 {
		t.Errorf("CurrentBalance() = %d, want 800", got.Cents)
	}
}

func TestAccountLedger_BalanceAtRespectsDate(t *testing.T) {
	hh := newHousehold(t)
	hh.addTx(t, hh.checking, hh.groceries, 200, day(2024, 1, 5))
	hh.addTx(t, hh.checking, hh.salary, 300, day(2024, 1, 15))

	ledger := NewAccountLedger(hh.store, nil)
	tests := []struct {
		name string
		at   time.Time
		want int64
	}{
		{"before any activity", day(2024, 1, 1), 1000},
		{"exactly at expense", day(2024, 1, 5), 800},
		{"between", day(2024, 1, 10), 800},
		{"after income", day(2024, 1, 20), 1100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.BalanceAt(context.Background(), hh.checking.ID, tt.at)
			if err != nil {
				t.Fatalf("BalanceAt() error = %v", err)
			}
			if got.Cents != tt.want {
				t.Errorf("BalanceAt(%v) = %d, want %d", tt.at, got.Cents, tt.want)
			}
		})
	}
}

func TestAccountLedger_HybridCategoryDebits(t *testing.T) {
	hh := newHousehold(t)
	hh.addTx(t, hh.checking, hh.refunds, 100, day(2024, 1, 5))

	got, err := NewAccountLedger(hh.store, nil).BalanceAt(context.Background(), hh.checking.ID, day(2024, 2, 1))
	if err != nil {
		t.Fatalf("BalanceAt() error = %v", err)
	}
	if got.Cents != 900 {
		t.Errorf("hybrid category should debit: got %d, want 900", got.Cents)
	}
}

func TestAccountLedger_TransfersMoveMoney(t *testing.T) {
	hh := newHousehold(t)
	ctx := context.Background()
	dateD := day(2024, 3, 10)

	coord := NewTransferCoordinator(hh.store, nil)
	if _, err := coord.Create(ctx, owner, TransferInput{
		BudgetID:      hh.budgetA.ID,
		FromAccountID: hh.checking.ID,
		ToAccountID:   hh.savings.ID,
		Amount:        core.Cents(100),
		Date:          dateD,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ledger := NewAccountLedger(hh.store, nil)
	tests := []struct {
		name    string
		account core.Account
		at      time.Time
		want    int64
	}{
		{"source before", hh.checking, dateD.Add(-time.Second), 1000},
		{"source at date", hh.checking, dateD, 900},
		{"source after", hh.checking, dateD.AddDate(0, 1, 0), 900},
		{"destination before", hh.savings, dateD.Add(-time.Second), 500},
		{"destination at date", hh.savings, dateD, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.BalanceAt(ctx, tt.account.ID, tt.at)
			if err != nil {
				t.Fatalf("BalanceAt() error = %v", err)
			}
			if got.Cents != tt.want {
				t.Errorf("BalanceAt() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestAccountLedger_EditsApplyRetroactively(t *testing.T) {
	hh := newHousehold(t)
	ctx := context.Background()
	tx := hh.addTx(t, hh.checking, hh.groceries, 200, day(2024, 1, 5))
	ledger := NewAccountLedger(hh.store, fixedClock(day(2024, 2, 1)))

	tx.Amount = core.Cents(50)
	if _, err := hh.store.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if got, _ := ledger.CurrentBalance(ctx, hh.checking.ID); got.Cents != 950 {
		t.Errorf("after edit = %d, want 950", got.Cents)
	}

	if err := hh.store.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if got, _ := ledger.CurrentBalance(ctx, hh.checking.ID); got.Cents != 1000 {
		t.Errorf("after delete = %d, want 1000", got.Cents)
	}
}

func TestAccountLedger_BalanceAtIsPure(t *testing.T) {
	hh := newHousehold(t)
	hh.addTx(t, hh.checking, hh.salary, 300, day(2024, 1, 15))
	hh.addTx(t, hh.checking, hh.groceries, 120, day(2024, 1, 3))
	ledger := NewAccountLedger(hh.store, nil)
	ctx := context.Background()

	first, err := ledger.BalanceAt(ctx, hh.checking.ID, day(2024, 1, 31))
	if err != nil {
		t.Fatalf("BalanceAt() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := ledger.BalanceAt(ctx, hh.checking.ID, day(2024, 1, 31))
		if again != first {
			t.Fatalf("call %d returned %d, first returned %d", i, again.Cents, first.Cents)
		}
	}
	txs, _ := hh.store.ListTransactions(ctx, []string{hh.checking.ID}, time.Time{})
	if len(txs) != 2 {
		t.Fatalf("BalanceAt mutated the store: %d transactions", len(txs))
	}
}

func TestAccountLedger_Errors(t *testing.T) {
	hh := newHousehold(t)
	ledger := NewAccountLedger(hh.store, nil)
	ctx := context.Background()

	_, err := ledger.CurrentBalance(ctx, "missing")
	assertKind(t, err, core.ErrNotFound)

	_, err = ledger.BalanceAt(ctx, hh.checking.ID, time.Time{})
	assertKind(t, err, core.ErrInvalidArgument)
}

// The balance matches an independent fold over the raw rows and the last
// point of a sampled series ending now.
func TestAccountLedger_AgreesWithIndependentSumAndSampler(t *testing.T) {
	hh := newHousehold(t)
	ctx := context.Background()
	now := day(2024, 6, 30).Add(12 * time.Hour)

	hh.addTx(t, hh.checking, hh.salary, 2500, day(2024, 1, 25))
	hh.addTx(t, hh.checking, hh.groceries, 430, day(2024, 2, 3))
	hh.addTx(t, hh.checking, hh.refunds, 75, day(2024, 3, 14))
	hh.addTx(t, hh.savings, hh.salary, 90, day(2024, 4, 1))
	coord := NewTransferCoordinator(hh.store, nil)
	if _, err := coord.Create(ctx, owner, TransferInput{
		BudgetID: hh.budgetA.ID, FromAccountID: hh.checking.ID, ToAccountID: hh.savings.ID,
		Amount: core.Cents(600), Date: day(2024, 5, 5),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	want := int64(1000 + 2500 - 430 - 75 - 600)

	got, err := NewAccountLedger(hh.store, fixedClock(now)).CurrentBalance(ctx, hh.checking.ID)
	if err != nil {
		t.Fatalf("CurrentBalance() error = %v", err)
	}
	if got.Cents != want {
		t.Errorf("CurrentBalance() = %d, independent sum = %d", got.Cents, want)
	}

	snaps, err := NewBalanceSeries(hh.store).Series(ctx, owner, hh.id, []string{hh.checking.ID}, day(2024, 1, 1), now)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	if len(snaps) == 0 {
		t.Fatal("Series() returned no snapshots")
	}
	if timeseries.ChooseGranularity(day(2024, 1, 1), now) != timeseries.Monthly {
		t.Fatalf("expected a monthly series for a six month window")
	}
	if last := snaps[len(snaps)-1].Balances[0].Cents; last != got.Cents {
		t.Errorf("last sampled point = %d, CurrentBalance = %d", last, got.Cents)
	}
}

func TestAccountLedger_ForeignCategoryNeverReachesHistory(t *testing.T) {
	hh := newHousehold(t)
	ctx := context.Background()

	other, err := hh.store.CreateHousehold(ctx, "Cabin", outsider)
	if err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}
	rent, err := hh.store.CreateCategory(ctx, core.Category{HouseholdID: other.ID, Name: "Rent", Types: []core.CategoryType{core.Income}})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err = hh.store.CreateTransaction(ctx, core.Transaction{
		AccountID: hh.checking.ID, CategoryID: rent.ID, Amount: core.Cents(300), Date: day(2024, 1, 5),
	})
	assertKind(t, err, core.ErrInvalidArgument)

	got, err := NewAccountLedger(hh.store, fixedClock(day(2024, 2, 1))).CurrentBalance(ctx, hh.checking.ID)
	if err != nil {
		t.Fatalf("CurrentBalance() error = %v", err)
	}
	if got.Cents != 1000 {
		t.Errorf("CurrentBalance() = %d, want 1000", got.Cents)
	}
	funds, err := NewAllocationLedger(hh.store, nil).Unallocated(ctx, hh.id, owner)
	if err != nil {
		t.Fatalf("Unallocated() error = %v", err)
	}
	if funds.TotalFunds.Cents != 1500 {
		t.Errorf("TotalFunds = %d, want 1500", funds.TotalFunds.Cents)
	}
}
