package core

import (
	"strings"
	"time"
)

const (
	Income  CategoryType = "INCOME"
	Expense CategoryType = "EXPENSE"
)

type (
	CategoryType string

	Household struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	Account struct {
		ID             string
		HouseholdID    string
		Name           string
		InitialBalance Money // baseline fixed at creation
		Archived       bool
	}

	Category struct {
		ID          string
		HouseholdID string
		Name        string
		Types       []CategoryType
	}

	Transaction struct {
		ID         string
		AccountID  string
		CategoryID string
		Amount     Money // always positive; direction comes from the category
		Date       time.Time
		Notes      string
		BillID     string // optional
	}

	Budget struct {
		ID          string
		HouseholdID string
		Name        string
	}

	// BudgetAllocation is one signed, immutable ledger entry against a budget.
	BudgetAllocation struct {
		ID        string
		BudgetID  string
		Amount    Money
		CreatedAt time.Time
	}

	// Transfer moves money between two accounts. It is not a budget allocation.
	Transfer struct {
		ID            string
		BudgetID      string
		FromAccountID string
		ToAccountID   string
		Amount        Money
		Date          time.Time
		Notes         string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// UnallocatedFunds is the household-level allocation summary.
	UnallocatedFunds struct {
		HouseholdID    string
		TotalFunds     Money
		TotalAllocated Money
		Unallocated    Money
	}
)

// Has reports whether the category carries the given type.
func (c Category) Has(t CategoryType) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// IsIncomeOnly reports whether the type set is exactly {INCOME}.
func (c Category) IsIncomeOnly() bool {
	return c.Has(Income) && !c.Has(Expense)
}

// SignedAmount applies the sign rule: income-only categories credit the
// account, every other type set (expense-only, hybrid, empty) debits it.
func SignedAmount(tx Transaction, cat Category) Money {
	if cat.IsIncomeOnly() {
		return tx.Amount
	}
	return tx.Amount.Neg()
}

// DeltaFor returns the transfer's effect on accountID: -amount for the
// source, +amount for the destination and zero for any other account.
func (t Transfer) DeltaFor(accountID string) Money {
	switch accountID {
	case t.FromAccountID:
		return t.Amount.Neg()
	case t.ToAccountID:
		return t.Amount
	default:
		return Money{}
	}
}

func (c CategoryType) Validate() error {
	switch c {
	case Income, Expense:
		return nil
	default:
		return InvalidArgument("category_type", "unknown category type "+string(c))
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.HouseholdID) == "" {
		return InvalidArgument("household_id", "cannot be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return InvalidArgument("name", "cannot be empty")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.HouseholdID) == "" {
		return InvalidArgument("household_id", "cannot be empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return InvalidArgument("name", "cannot be empty")
	}
	for _, t := range c.Types {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.AccountID) == "" {
		return InvalidArgument("account_id", "cannot be empty")
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return InvalidArgument("category_id", "cannot be empty")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return InvalidArgument("date", "cannot be zero")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.HouseholdID) == "" {
		return InvalidArgument("household_id", "cannot be empty")
	}
	if strings.TrimSpace(b.Name) == "" {
		return InvalidArgument("name", "cannot be empty")
	}
	return nil
}

// Validate checks the transfer's own fields. Account existence and the
// budget link are checked by the coordinator against the store.
func (t Transfer) Validate() error {
	if strings.TrimSpace(t.BudgetID) == "" {
		return InvalidArgument("budget_id", "cannot be empty")
	}
	if strings.TrimSpace(t.FromAccountID) == "" {
		return InvalidArgument("from_account_id", "cannot be empty")
	}
	if strings.TrimSpace(t.ToAccountID) == "" {
		return InvalidArgument("to_account_id", "cannot be empty")
	}
	if t.FromAccountID == t.ToAccountID {
		return InvalidArgument("to_account_id", "source and destination account are the same: "+t.FromAccountID)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return InvalidArgument("date", "cannot be zero")
	}
	if len(t.Notes) > 500 {
		return InvalidArgument("notes", "too long (max 500 characters)")
	}
	return nil
}
