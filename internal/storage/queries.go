package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// noUpperBound disables the date filter on list queries.
const noUpperBound int64 = 1<<63 - 1

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// Households

const createHousehold = `INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)`

func (q *Queries) CreateHousehold(ctx context.Context, arg Household) error {
	_, err := q.db.ExecContext(ctx, createHousehold, arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const getHousehold = `SELECT id, name, created_at FROM households WHERE id = ?`

func (q *Queries) GetHousehold(ctx context.Context, id string) (Household, error) {
	var h Household
	err := q.db.QueryRowContext(ctx, getHousehold, id).Scan(&h.ID, &h.Name, &h.CreatedAt)
	return h, err
}

const addHouseholdMember = `INSERT INTO household_members (household_id, user_id, created_at) VALUES (?, ?, ?)`

func (q *Queries) AddHouseholdMember(ctx context.Context, householdID, userID string, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, addHouseholdMember, householdID, userID, createdAt)
	return err
}

const isHouseholdMember = `SELECT EXISTS (SELECT 1 FROM household_members WHERE household_id = ? AND user_id = ?)`

func (q *Queries) IsHouseholdMember(ctx context.Context, householdID, userID string) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, isHouseholdMember, householdID, userID).Scan(&ok)
	return ok, err
}

// Accounts

const createAccount = `INSERT INTO accounts (id, household_id, name, initial_balance_cents, archived, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		arg.ID, arg.HouseholdID, arg.Name, arg.InitialBalanceCents, arg.Archived, arg.CreatedAt)
	return err
}

const accountColumns = `id, household_id, name, initial_balance_cents, archived, created_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.HouseholdID, &a.Name, &a.InitialBalanceCents, &a.Archived, &a.CreatedAt)
	return a, err
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const listAccountsByHousehold = `SELECT ` + accountColumns + ` FROM accounts WHERE household_id = ? ORDER BY created_at, id`

func (q *Queries) ListAccountsByHousehold(ctx context.Context, householdID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccountsByHousehold, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const renameAccount = `UPDATE accounts SET name = ? WHERE id = ?`

func (q *Queries) RenameAccount(ctx context.Context, id, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, renameAccount, name, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setAccountArchived = `UPDATE accounts SET archived = ? WHERE id = ?`

func (q *Queries) SetAccountArchived(ctx context.Context, id string, archived bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, setAccountArchived, archived, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Categories

const createCategory = `INSERT INTO categories (id, household_id, name, is_income, is_expense) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.HouseholdID, arg.Name, arg.IsIncome, arg.IsExpense)
	return err
}

const getCategory = `SELECT id, household_id, name, is_income, is_expense FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&c.ID, &c.HouseholdID, &c.Name, &c.IsIncome, &c.IsExpense)
	return c, err
}

const listCategoriesByHousehold = `SELECT id, household_id, name, is_income, is_expense
FROM categories WHERE household_id = ? ORDER BY name, id`

func (q *Queries) ListCategoriesByHousehold(ctx context.Context, householdID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesByHousehold, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.HouseholdID, &c.Name, &c.IsIncome, &c.IsExpense); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Transactions

const transactionColumns = `id, account_id, category_id, amount_cents, date, notes, bill_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.CategoryID, &t.AmountCents, &t.Date, &t.Notes, &t.BillID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.AccountID, arg.CategoryID, arg.AmountCents, arg.Date, arg.Notes, arg.BillID, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const updateTransaction = `UPDATE transactions
SET account_id = ?, category_id = ?, amount_cents = ?, date = ?, notes = ?, bill_id = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.AccountID, arg.CategoryID, arg.AmountCents, arg.Date, arg.Notes, arg.BillID, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListTransactionsByAccounts returns transactions of the given accounts with
// date <= until, oldest first.
func (q *Queries) ListTransactionsByAccounts(ctx context.Context, accountIDs []string, until int64) ([]Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions
WHERE account_id IN (` + placeholders(len(accountIDs)) + `) AND date <= ?
ORDER BY date, created_at, id`
	args := append(stringArgs(accountIDs), until)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// Budgets

const createBudget = `INSERT INTO budgets (id, household_id, name, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, arg Budget) error {
	_, err := q.db.ExecContext(ctx, createBudget, arg.ID, arg.HouseholdID, arg.Name, arg.CreatedAt)
	return err
}

const getBudget = `SELECT id, household_id, name, created_at FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (Budget, error) {
	var b Budget
	err := q.db.QueryRowContext(ctx, getBudget, id).Scan(&b.ID, &b.HouseholdID, &b.Name, &b.CreatedAt)
	return b, err
}

const linkBudgetAccount = `INSERT OR IGNORE INTO budget_accounts (budget_id, account_id) VALUES (?, ?)`

func (q *Queries) LinkBudgetAccount(ctx context.Context, budgetID, accountID string) error {
	_, err := q.db.ExecContext(ctx, linkBudgetAccount, budgetID, accountID)
	return err
}

const isBudgetAccountLinked = `SELECT EXISTS (SELECT 1 FROM budget_accounts WHERE budget_id = ? AND account_id = ?)`

func (q *Queries) IsBudgetAccountLinked(ctx context.Context, budgetID, accountID string) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, isBudgetAccountLinked, budgetID, accountID).Scan(&ok)
	return ok, err
}

// Budget allocations

const createBudgetAllocation = `INSERT INTO budget_allocations (id, budget_id, amount_cents, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateBudgetAllocation(ctx context.Context, arg BudgetAllocation) error {
	_, err := q.db.ExecContext(ctx, createBudgetAllocation, arg.ID, arg.BudgetID, arg.AmountCents, arg.CreatedAt)
	return err
}

func (q *Queries) listAllocations(ctx context.Context, query string, arg string) ([]BudgetAllocation, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetAllocation
	for rows.Next() {
		var a BudgetAllocation
		if err := rows.Scan(&a.ID, &a.BudgetID, &a.AmountCents, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const listAllocationsByHousehold = `SELECT a.id, a.budget_id, a.amount_cents, a.created_at
FROM budget_allocations a
JOIN budgets b ON b.id = a.budget_id
WHERE b.household_id = ?
ORDER BY a.created_at, a.rowid`

func (q *Queries) ListAllocationsByHousehold(ctx context.Context, householdID string) ([]BudgetAllocation, error) {
	return q.listAllocations(ctx, listAllocationsByHousehold, householdID)
}

const listAllocationsByBudget = `SELECT id, budget_id, amount_cents, created_at
FROM budget_allocations WHERE budget_id = ?
ORDER BY created_at, rowid`

func (q *Queries) ListAllocationsByBudget(ctx context.Context, budgetID string) ([]BudgetAllocation, error) {
	return q.listAllocations(ctx, listAllocationsByBudget, budgetID)
}

// Transfers

const transferColumns = `id, budget_id, from_account_id, to_account_id, amount_cents, date, notes, created_at, updated_at`

func scanTransfer(row interface{ Scan(...interface{}) error }) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.BudgetID, &t.FromAccountID, &t.ToAccountID, &t.AmountCents, &t.Date, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const createTransfer = `INSERT INTO transfers (` + transferColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransfer(ctx context.Context, arg Transfer) error {
	_, err := q.db.ExecContext(ctx, createTransfer,
		arg.ID, arg.BudgetID, arg.FromAccountID, arg.ToAccountID, arg.AmountCents, arg.Date, arg.Notes, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const getTransfer = `SELECT ` + transferColumns + ` FROM transfers WHERE id = ?`

func (q *Queries) GetTransfer(ctx context.Context, id string) (Transfer, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, getTransfer, id))
}

const updateTransfer = `UPDATE transfers
SET budget_id = ?, from_account_id = ?, to_account_id = ?, amount_cents = ?, date = ?, notes = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTransfer(ctx context.Context, arg Transfer) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransfer,
		arg.BudgetID, arg.FromAccountID, arg.ToAccountID, arg.AmountCents, arg.Date, arg.Notes, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransfer = `DELETE FROM transfers WHERE id = ?`

func (q *Queries) DeleteTransfer(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransfer, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) listTransfers(ctx context.Context, query string, args ...interface{}) ([]Transfer, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const listTransfersByBudget = `SELECT ` + transferColumns + ` FROM transfers WHERE budget_id = ? ORDER BY date, created_at, id`

func (q *Queries) ListTransfersByBudget(ctx context.Context, budgetID string) ([]Transfer, error) {
	return q.listTransfers(ctx, listTransfersByBudget, budgetID)
}

// ListTransfersByAccounts returns transfers touching any of the accounts,
// on either side, with date <= until, oldest first.
func (q *Queries) ListTransfersByAccounts(ctx context.Context, accountIDs []string, until int64) ([]Transfer, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	in := placeholders(len(accountIDs))
	query := `SELECT ` + transferColumns + ` FROM transfers
WHERE (from_account_id IN (` + in + `) OR to_account_id IN (` + in + `)) AND date <= ?
ORDER BY date, created_at, id`
	args := append(stringArgs(accountIDs), stringArgs(accountIDs)...)
	args = append(args, until)
	return q.listTransfers(ctx, query, args...)
}
