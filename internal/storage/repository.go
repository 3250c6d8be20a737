package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// dsn enables foreign keys and WAL on every pooled connection and makes
// writers wait instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; multi-row writes hold this connection for the
	// whole transaction.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside one database transaction. fn must only use the
// Queries it is handed.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func untilMillis(until time.Time) int64 {
	if until.IsZero() {
		return noUpperBound
	}
	return toMillis(until)
}

// notFound maps sql.ErrNoRows to a core NotFound error and wraps anything
// else with op.
func notFound(err error, entity, id, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(entity, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(n int64, err error, entity, id, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

// Households and membership

// CreateHousehold creates the household and its owner membership in a
// single transaction.
func (r *SQLiteRepository) CreateHousehold(ctx context.Context, name, ownerUserID string) (core.Household, error) {
	if name == "" {
		return core.Household{}, core.InvalidArgument("name", "cannot be empty")
	}
	if ownerUserID == "" {
		return core.Household{}, core.InvalidArgument("owner_user_id", "cannot be empty")
	}

	now := r.now()
	row := Household{ID: uuid.NewString(), Name: name, CreatedAt: toMillis(now)}
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.CreateHousehold(ctx, row); err != nil {
			return fmt.Errorf("create household: %w", err)
		}
		if err := q.AddHouseholdMember(ctx, row.ID, ownerUserID, row.CreatedAt); err != nil {
			return fmt.Errorf("add owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Household{}, err
	}

	slog.InfoContext(ctx, "Household created", "household_id", row.ID, "owner", ownerUserID)
	return core.Household{ID: row.ID, Name: row.Name, CreatedAt: fromMillis(row.CreatedAt)}, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, householdID, userID string) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetHousehold(ctx, householdID); err != nil {
			return notFound(err, "household", householdID, "get household")
		}
		if err := q.AddHouseholdMember(ctx, householdID, userID, toMillis(r.now())); err != nil {
			return fmt.Errorf("add member %s to household %s: %w", userID, householdID, err)
		}
		return nil
	})
}

// IsMember implements services.Membership.
func (r *SQLiteRepository) IsMember(ctx context.Context, userID, householdID string) (bool, error) {
	ok, err := r.queries.IsHouseholdMember(ctx, householdID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// Accounts

func accountFromRow(a Account) core.Account {
	return core.Account{
		ID:             a.ID,
		HouseholdID:    a.HouseholdID,
		Name:           a.Name,
		InitialBalance: core.Cents(a.InitialBalanceCents),
		Archived:       a.Archived,
	}
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.queries.CreateAccount(ctx, Account{
		ID:                  a.ID,
		HouseholdID:         a.HouseholdID,
		Name:                a.Name,
		InitialBalanceCents: a.InitialBalance.Cents,
		Archived:            a.Archived,
		CreatedAt:           toMillis(r.now()),
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, notFound(err, "account", id, "get account")
	}
	return accountFromRow(row), nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, householdID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccountsByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, row := range rows {
		out[i] = accountFromRow(row)
	}
	return out, nil
}

// RenameAccount is the only mutation of an account besides archiving; the
// initial balance never changes after creation.
func (r *SQLiteRepository) RenameAccount(ctx context.Context, id, name string) error {
	if name == "" {
		return core.InvalidArgument("name", "cannot be empty")
	}
	n, err := r.queries.RenameAccount(ctx, id, name)
	return affected(n, err, "account", id, "rename account")
}

func (r *SQLiteRepository) ArchiveAccount(ctx context.Context, id string, archived bool) error {
	n, err := r.queries.SetAccountArchived(ctx, id, archived)
	return affected(n, err, "account", id, "archive account")
}

// Categories

func categoryFromRow(c Category) core.Category {
	cat := core.Category{ID: c.ID, HouseholdID: c.HouseholdID, Name: c.Name}
	if c.IsIncome {
		cat.Types = append(cat.Types, core.Income)
	}
	if c.IsExpense {
		cat.Types = append(cat.Types, core.Expense)
	}
	return cat
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.queries.CreateCategory(ctx, Category{
		ID:          c.ID,
		HouseholdID: c.HouseholdID,
		Name:        c.Name,
		IsIncome:    c.Has(core.Income),
		IsExpense:   c.Has(core.Expense),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, householdID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategoriesByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

// Transactions

func transactionFromRow(t Transaction) core.Transaction {
	return core.Transaction{
		ID:         t.ID,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Amount:     core.Cents(t.AmountCents),
		Date:       fromMillis(t.Date),
		Notes:      t.Notes,
		BillID:     t.BillID.String,
	}
}

func transactionToRow(tx core.Transaction, now int64) Transaction {
	return Transaction{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		CategoryID:  tx.CategoryID,
		AmountCents: tx.Amount.Cents,
		Date:        toMillis(tx.Date),
		Notes:       tx.Notes,
		BillID:      sql.NullString{String: tx.BillID, Valid: tx.BillID != ""},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// checkTransactionRefs requires the account and the category to exist and
// to belong to the same household.
func checkTransactionRefs(ctx context.Context, q *Queries, tx core.Transaction) error {
	account, err := q.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return notFound(err, "account", tx.AccountID, "get account")
	}
	cat, err := q.GetCategory(ctx, tx.CategoryID)
	if err != nil {
		return notFound(err, "category", tx.CategoryID, "get category")
	}
	if cat.HouseholdID != account.HouseholdID {
		return core.InvalidArgument("category_id",
			fmt.Sprintf("category %s belongs to a different household than account %s", cat.ID, account.ID))
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	err := r.withTx(ctx, func(q *Queries) error {
		if err := checkTransactionRefs(ctx, q, tx); err != nil {
			return err
		}
		if err := q.CreateTransaction(ctx, transactionToRow(tx, toMillis(r.now()))); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", tx.ID,
		"account_id", tx.AccountID,
		"amount_cents", tx.Amount.Cents)
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id, "get transaction")
	}
	return transactionFromRow(row), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := r.withTx(ctx, func(q *Queries) error {
		if err := checkTransactionRefs(ctx, q, tx); err != nil {
			return err
		}
		n, err := q.UpdateTransaction(ctx, transactionToRow(tx, toMillis(r.now())))
		return affected(n, err, "transaction", tx.ID, "update transaction")
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	return affected(n, err, "transaction", id, "delete transaction")
}

// ListTransactions returns the transactions of the given accounts dated at
// or before until, oldest first. A zero until means the whole history.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountIDs []string, until time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccounts(ctx, accountIDs, untilMillis(until))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = transactionFromRow(row)
	}
	return out, nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := r.queries.CreateBudget(ctx, Budget{
		ID:          b.ID,
		HouseholdID: b.HouseholdID,
		Name:        b.Name,
		CreatedAt:   toMillis(r.now()),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id, "get budget")
	}
	return core.Budget{ID: row.ID, HouseholdID: row.HouseholdID, Name: row.Name}, nil
}

// LinkAccount links an account to a budget. Linking twice is a no-op.
func (r *SQLiteRepository) LinkAccount(ctx context.Context, budgetID, accountID string) error {
	if err := r.queries.LinkBudgetAccount(ctx, budgetID, accountID); err != nil {
		return fmt.Errorf("link account %s to budget %s: %w", accountID, budgetID, err)
	}
	return nil
}

func (r *SQLiteRepository) IsAccountLinked(ctx context.Context, budgetID, accountID string) (bool, error) {
	ok, err := r.queries.IsBudgetAccountLinked(ctx, budgetID, accountID)
	if err != nil {
		return false, fmt.Errorf("check budget link: %w", err)
	}
	return ok, nil
}

// Allocations

func allocationFromRow(a BudgetAllocation) core.BudgetAllocation {
	return core.BudgetAllocation{
		ID:        a.ID,
		BudgetID:  a.BudgetID,
		Amount:    core.Cents(a.AmountCents),
		CreatedAt: fromMillis(a.CreatedAt),
	}
}

// AppendAllocations writes every entry in one transaction: either all rows
// are committed or none is. IDs and timestamps are assigned here.
func (r *SQLiteRepository) AppendAllocations(ctx context.Context, entries ...core.BudgetAllocation) ([]core.BudgetAllocation, error) {
	if len(entries) == 0 {
		return nil, core.InvalidArgument("entries", "at least one allocation is required")
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	out := make([]core.BudgetAllocation, len(entries))
	err := r.withTx(ctx, func(q *Queries) error {
		for i, e := range entries {
			e.ID = uuid.NewString()
			e.CreatedAt = now
			if err := q.CreateBudgetAllocation(ctx, BudgetAllocation{
				ID:          e.ID,
				BudgetID:    e.BudgetID,
				AmountCents: e.Amount.Cents,
				CreatedAt:   toMillis(now),
			}); err != nil {
				return fmt.Errorf("append allocation for budget %s: %w", e.BudgetID, err)
			}
			out[i] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllocations returns every allocation of every budget in the household.
func (r *SQLiteRepository) ListAllocations(ctx context.Context, householdID string) ([]core.BudgetAllocation, error) {
	rows, err := r.queries.ListAllocationsByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list household allocations: %w", err)
	}
	out := make([]core.BudgetAllocation, len(rows))
	for i, row := range rows {
		out[i] = allocationFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) ListBudgetAllocations(ctx context.Context, budgetID string) ([]core.BudgetAllocation, error) {
	rows, err := r.queries.ListAllocationsByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget allocations: %w", err)
	}
	out := make([]core.BudgetAllocation, len(rows))
	for i, row := range rows {
		out[i] = allocationFromRow(row)
	}
	return out, nil
}

// Transfers

func transferFromRow(t Transfer) core.Transfer {
	return core.Transfer{
		ID:            t.ID,
		BudgetID:      t.BudgetID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        core.Cents(t.AmountCents),
		Date:          fromMillis(t.Date),
		Notes:         t.Notes,
		CreatedAt:     fromMillis(t.CreatedAt),
		UpdatedAt:     fromMillis(t.UpdatedAt),
	}
}

func transferToRow(t core.Transfer) Transfer {
	return Transfer{
		ID:            t.ID,
		BudgetID:      t.BudgetID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		AmountCents:   t.Amount.Cents,
		Date:          toMillis(t.Date),
		Notes:         t.Notes,
		CreatedAt:     toMillis(t.CreatedAt),
		UpdatedAt:     toMillis(t.UpdatedAt),
	}
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	t.CreatedAt, t.UpdatedAt = now, now
	if err := r.queries.CreateTransfer(ctx, transferToRow(t)); err != nil {
		return core.Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	return transferFromRow(transferToRow(t)), nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id string) (core.Transfer, error) {
	row, err := r.queries.GetTransfer(ctx, id)
	if err != nil {
		return core.Transfer{}, notFound(err, "transfer", id, "get transfer")
	}
	return transferFromRow(row), nil
}

// UpdateTransfer rewrites every mutable column; CreatedAt is kept.
func (r *SQLiteRepository) UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}
	t.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	n, err := r.queries.UpdateTransfer(ctx, transferToRow(t))
	if err := affected(n, err, "transfer", t.ID, "update transfer"); err != nil {
		return core.Transfer{}, err
	}
	return r.GetTransfer(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransfer(ctx, id)
	return affected(n, err, "transfer", id, "delete transfer")
}

func (r *SQLiteRepository) ListBudgetTransfers(ctx context.Context, budgetID string) ([]core.Transfer, error) {
	rows, err := r.queries.ListTransfersByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget transfers: %w", err)
	}
	out := make([]core.Transfer, len(rows))
	for i, row := range rows {
		out[i] = transferFromRow(row)
	}
	return out, nil
}

// ListTransfers returns transfers touching any of the accounts, dated at or
// before until. A zero until means the whole history.
func (r *SQLiteRepository) ListTransfers(ctx context.Context, accountIDs []string, until time.Time) ([]core.Transfer, error) {
	rows, err := r.queries.ListTransfersByAccounts(ctx, accountIDs, untilMillis(until))
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	out := make([]core.Transfer, len(rows))
	for i, row := range rows {
		out[i] = transferFromRow(row)
	}
	return out, nil
}
