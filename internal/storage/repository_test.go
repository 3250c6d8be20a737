package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

type seed struct {
	household core.Household
	checking  core.Account
	savings   core.Account
	salary    core.Category
	groceries core.Category
	budget    core.Budget
}

func seedHousehold(t *testing.T, repo *SQLiteRepository) seed {
	t.Helper()
	ctx := context.Background()

	var s seed
	var err error
	if s.household, err = repo.CreateHousehold(ctx, "Home", "alice"); err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}
	if s.checking, err = repo.CreateAccount(ctx, core.Account{HouseholdID: s.household.ID, Name: "Checking", InitialBalance: core.Cents(1000)}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if s.savings, err = repo.CreateAccount(ctx, core.Account{HouseholdID: s.household.ID, Name: "Savings", InitialBalance: core.Cents(500)}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if s.salary, err = repo.CreateCategory(ctx, core.Category{HouseholdID: s.household.ID, Name: "Salary", Types: []core.CategoryType{core.Income}}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if s.groceries, err = repo.CreateCategory(ctx, core.Category{HouseholdID: s.household.ID, Name: "Groceries", Types: []core.CategoryType{core.Expense}}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if s.budget, err = repo.CreateBudget(ctx, core.Budget{HouseholdID: s.household.ID, Name: "Monthly"}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	return s
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	// Running twice is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	version, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("MigrationVersion() = %d, dirty=%v, want 1, false", version, dirty)
	}
}

func TestCreateHousehold_AddsOwnerMembership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	h, err := repo.CreateHousehold(ctx, "Home", "alice")
	if err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}

	tests := []struct {
		user string
		want bool
	}{
		{"alice", true},
		{"bob", false},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			ok, err := repo.IsMember(ctx, tt.user, h.ID)
			if err != nil {
				t.Fatalf("IsMember() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("IsMember(%s) = %v, want %v", tt.user, ok, tt.want)
			}
		})
	}
}

func TestCreateHousehold_RejectsEmptyOwner(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateHousehold(context.Background(), "Home", "")
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestNotFoundMapping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"account", func() error { _, err := repo.GetAccount(ctx, "missing"); return err }},
		{"budget", func() error { _, err := repo.GetBudget(ctx, "missing"); return err }},
		{"transfer", func() error { _, err := repo.GetTransfer(ctx, "missing"); return err }},
		{"transaction", func() error { _, err := repo.GetTransaction(ctx, "missing"); return err }},
		{"delete transfer", func() error { return repo.DeleteTransfer(ctx, "missing") }},
		{"delete transaction", func() error { return repo.DeleteTransaction(ctx, "missing") }},
		{"add member", func() error { return repo.AddMember(ctx, "missing", "bob") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestCategoryTypesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	if _, err := repo.CreateCategory(ctx, core.Category{
		HouseholdID: s.household.ID,
		Name:        "Refunds",
		Types:       []core.CategoryType{core.Expense, core.Income},
	}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	cats, err := repo.ListCategories(ctx, s.household.ID)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	byName := map[string]core.Category{}
	for _, c := range cats {
		byName[c.Name] = c
	}
	if !byName["Salary"].IsIncomeOnly() {
		t.Errorf("Salary should be income-only: %+v", byName["Salary"])
	}
	refunds := byName["Refunds"]
	if !refunds.Has(core.Income) || !refunds.Has(core.Expense) {
		t.Errorf("Refunds should carry both types: %+v", refunds)
	}
}

func TestListTransactions_UntilIsInclusive(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	d1 := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for _, tx := range []core.Transaction{
		{AccountID: s.checking.ID, CategoryID: s.groceries.ID, Amount: core.Cents(200), Date: d1},
		{AccountID: s.checking.ID, CategoryID: s.salary.ID, Amount: core.Cents(300), Date: d2, BillID: "bill-1"},
		{AccountID: s.savings.ID, CategoryID: s.salary.ID, Amount: core.Cents(50), Date: d1},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	tests := []struct {
		name     string
		accounts []string
		until    time.Time
		want     int
	}{
		{"whole history", []string{s.checking.ID}, time.Time{}, 2},
		{"exactly at first date", []string{s.checking.ID}, d1, 1},
		{"before everything", []string{s.checking.ID}, d1.Add(-time.Millisecond), 0},
		{"both accounts", []string{s.checking.ID, s.savings.ID}, time.Time{}, 3},
		{"no accounts", nil, time.Time{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.accounts, tt.until)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListTransactions() returned %d rows, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := repo.ListTransactions(ctx, []string{s.checking.ID}, time.Time{})
	if !all[0].Date.Equal(d1) || all[1].BillID != "bill-1" {
		t.Errorf("unexpected transactions %+v", all)
	}
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		AccountID: s.checking.ID, CategoryID: s.groceries.ID, Amount: core.Cents(200), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	tx.Amount = core.Cents(250)
	if _, err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Amount.Cents != 250 {
		t.Errorf("amount = %d, want 250", got.Amount.Cents)
	}

	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected deleted transaction to be gone, got %v", err)
	}
}

func TestTransaction_CategoryMustShareHousehold(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	other, err := repo.CreateHousehold(ctx, "Cabin", "bob")
	if err != nil {
		t.Fatalf("CreateHousehold() error = %v", err)
	}
	foreign, err := repo.CreateCategory(ctx, core.Category{HouseholdID: other.ID, Name: "Rent", Types: []core.CategoryType{core.Income}})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		AccountID: s.checking.ID, CategoryID: foreign.ID, Amount: core.Cents(300), Date: date,
	})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("CreateTransaction() error = %v, want invalid argument", err)
	}

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		AccountID: s.checking.ID, CategoryID: "missing", Amount: core.Cents(300), Date: date,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("CreateTransaction() with unknown category error = %v, want not found", err)
	}

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		AccountID: s.checking.ID, CategoryID: s.groceries.ID, Amount: core.Cents(200), Date: date,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	moved := tx
	moved.CategoryID = foreign.ID
	if _, err := repo.UpdateTransaction(ctx, moved); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("UpdateTransaction() error = %v, want invalid argument", err)
	}

	all, err := repo.ListTransactions(ctx, []string{s.checking.ID}, time.Time{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 1 || all[0].CategoryID != s.groceries.ID {
		t.Errorf("stored transactions = %+v, want only the groceries one", all)
	}
}

func TestAppendAllocations_IsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	// The second entry violates the budget foreign key, so the first must
	// not survive either.
	_, err := repo.AppendAllocations(ctx,
		core.BudgetAllocation{BudgetID: s.budget.ID, Amount: core.Cents(-300)},
		core.BudgetAllocation{BudgetID: "missing", Amount: core.Cents(300)},
	)
	if err == nil {
		t.Fatal("expected foreign key failure")
	}

	entries, err := repo.ListBudgetAllocations(ctx, s.budget.ID)
	if err != nil {
		t.Fatalf("ListBudgetAllocations() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("partial write visible: %+v", entries)
	}
}

func TestAppendAllocations_ListsByHousehold(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	other, err := repo.CreateBudget(ctx, core.Budget{HouseholdID: s.household.ID, Name: "Holidays"})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	written, err := repo.AppendAllocations(ctx,
		core.BudgetAllocation{BudgetID: s.budget.ID, Amount: core.Cents(-300)},
		core.BudgetAllocation{BudgetID: other.ID, Amount: core.Cents(300)},
	)
	if err != nil {
		t.Fatalf("AppendAllocations() error = %v", err)
	}
	if written[0].ID == "" || written[0].CreatedAt.IsZero() {
		t.Errorf("ids and timestamps must be assigned: %+v", written[0])
	}

	all, err := repo.ListAllocations(ctx, s.household.ID)
	if err != nil {
		t.Fatalf("ListAllocations() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(all))
	}
	var sum int64
	for _, a := range all {
		sum += a.Amount.Cents
	}
	if sum != 0 {
		t.Errorf("allocations should net to zero, got %d", sum)
	}
}

func TestBudgetAllocations_AreAppendOnly(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	written, err := repo.AppendAllocations(ctx, core.BudgetAllocation{BudgetID: s.budget.ID, Amount: core.Cents(500)})
	if err != nil {
		t.Fatalf("AppendAllocations() error = %v", err)
	}

	if _, err := repo.db.ExecContext(ctx, `UPDATE budget_allocations SET amount_cents = 1 WHERE id = ?`, written[0].ID); err == nil {
		t.Error("update of an allocation should be rejected")
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM budget_allocations WHERE id = ?`, written[0].ID); err == nil {
		t.Error("delete of an allocation should be rejected")
	}
}

func TestTransfers(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	date := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	created, err := repo.CreateTransfer(ctx, core.Transfer{
		BudgetID:      s.budget.ID,
		FromAccountID: s.checking.ID,
		ToAccountID:   s.savings.ID,
		Amount:        core.Cents(100),
		Date:          date,
		Notes:         "rainy day",
	})
	if err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}

	t.Run("both sides are listed", func(t *testing.T) {
		for _, id := range []string{s.checking.ID, s.savings.ID} {
			got, err := repo.ListTransfers(ctx, []string{id}, time.Time{})
			if err != nil {
				t.Fatalf("ListTransfers() error = %v", err)
			}
			if len(got) != 1 || got[0].ID != created.ID {
				t.Errorf("ListTransfers(%s) = %+v", id, got)
			}
		}
	})

	t.Run("until filter", func(t *testing.T) {
		got, err := repo.ListTransfers(ctx, []string{s.checking.ID}, date.Add(-time.Second))
		if err != nil {
			t.Fatalf("ListTransfers() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no transfers before %v, got %d", date, len(got))
		}
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		upd := created
		upd.Amount = core.Cents(150)
		upd.Date = date.AddDate(0, 0, 1)
		got, err := repo.UpdateTransfer(ctx, upd)
		if err != nil {
			t.Fatalf("UpdateTransfer() error = %v", err)
		}
		if got.Amount.Cents != 150 || !got.Date.Equal(upd.Date) {
			t.Errorf("update not applied: %+v", got)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("created_at changed from %v to %v", created.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("same account rejected", func(t *testing.T) {
		_, err := repo.CreateTransfer(ctx, core.Transfer{
			BudgetID: s.budget.ID, FromAccountID: s.checking.ID, ToAccountID: s.checking.ID,
			Amount: core.Cents(1), Date: date,
		})
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.DeleteTransfer(ctx, created.ID); err != nil {
			t.Fatalf("DeleteTransfer() error = %v", err)
		}
		got, _ := repo.ListBudgetTransfers(ctx, s.budget.ID)
		if len(got) != 0 {
			t.Errorf("expected no transfers after delete, got %d", len(got))
		}
	})
}

func TestBudgetAccountLinks(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	if err := repo.LinkAccount(ctx, s.budget.ID, s.checking.ID); err != nil {
		t.Fatalf("LinkAccount() error = %v", err)
	}
	if err := repo.LinkAccount(ctx, s.budget.ID, s.checking.ID); err != nil {
		t.Fatalf("second LinkAccount() error = %v", err)
	}

	linked, err := repo.IsAccountLinked(ctx, s.budget.ID, s.checking.ID)
	if err != nil || !linked {
		t.Errorf("checking should be linked: %v %v", linked, err)
	}
	linked, err = repo.IsAccountLinked(ctx, s.budget.ID, s.savings.ID)
	if err != nil || linked {
		t.Errorf("savings should not be linked: %v %v", linked, err)
	}
}

func TestAccountRenameAndArchive(t *testing.T) {
	repo := newTestRepo(t)
	s := seedHousehold(t, repo)
	ctx := context.Background()

	if err := repo.RenameAccount(ctx, s.checking.ID, "Everyday"); err != nil {
		t.Fatalf("RenameAccount() error = %v", err)
	}
	if err := repo.ArchiveAccount(ctx, s.checking.ID, true); err != nil {
		t.Fatalf("ArchiveAccount() error = %v", err)
	}
	got, err := repo.GetAccount(ctx, s.checking.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if got.Name != "Everyday" || !got.Archived || got.InitialBalance.Cents != 1000 {
		t.Errorf("unexpected account %+v", got)
	}
}
