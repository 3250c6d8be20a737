package storage

import "database/sql"

// Row types mirror the tables one to one. Timestamps are unix milliseconds.

type Household struct {
	ID        string
	Name      string
	CreatedAt int64
}

type Account struct {
	ID                  string
	HouseholdID         string
	Name                string
	InitialBalanceCents int64
	Archived            bool
	CreatedAt           int64
}

type Category struct {
	ID          string
	HouseholdID string
	Name        string
	IsIncome    bool
	IsExpense   bool
}

type Transaction struct {
	ID          string
	AccountID   string
	CategoryID  string
	AmountCents int64
	Date        int64
	Notes       string
	BillID      sql.NullString
	CreatedAt   int64
	UpdatedAt   int64
}

type Budget struct {
	ID          string
	HouseholdID string
	Name        string
	CreatedAt   int64
}

type BudgetAllocation struct {
	ID          string
	BudgetID    string
	AmountCents int64
	CreatedAt   int64
}

type Transfer struct {
	ID            string
	BudgetID      string
	FromAccountID string
	ToAccountID   string
	AmountCents   int64
	Date          int64
	Notes         string
	CreatedAt     int64
	UpdatedAt     int64
}
