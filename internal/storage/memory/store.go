// Package memory is an in-process ledger store with the same method set as
// the SQLite repository. It backs the memory data backend and the service
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

type Store struct {
	mu sync.RWMutex

	households   map[string]core.Household
	members      map[string]map[string]struct{} // household -> users
	accounts     map[string]core.Account
	accountOrder []string
	categories   map[string]core.Category
	transactions []core.Transaction
	budgets      map[string]core.Budget
	links        map[string]map[string]struct{} // budget -> accounts
	allocations  []core.BudgetAllocation
	transfers    []core.Transfer

	now func() time.Time
}

func New() *Store {
	return &Store{
		households: map[string]core.Household{},
		members:    map[string]map[string]struct{}{},
		accounts:   map[string]core.Account{},
		categories: map[string]core.Category{},
		budgets:    map[string]core.Budget{},
		links:      map[string]map[string]struct{}{},
		now:        time.Now,
	}
}

// WithClock replaces the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// duplicateID reports a caller-supplied id that is already taken, the same
// input the SQLite primary keys reject.
func duplicateID(entity, id string) error {
	return core.InvalidArgument("id", fmt.Sprintf("%s %q already exists", entity, id))
}

// Households and membership

func (s *Store) CreateHousehold(_ context.Context, name, ownerUserID string) (core.Household, error) {
	if name == "" {
		return core.Household{}, core.InvalidArgument("name", "cannot be empty")
	}
	if ownerUserID == "" {
		return core.Household{}, core.InvalidArgument("owner_user_id", "cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := core.Household{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC()}
	s.households[h.ID] = h
	s.members[h.ID] = map[string]struct{}{ownerUserID: {}}
	return h, nil
}

func (s *Store) AddMember(_ context.Context, householdID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[householdID]; !ok {
		return core.NotFound("household", householdID)
	}
	s.members[householdID][userID] = struct{}{}
	return nil
}

func (s *Store) IsMember(_ context.Context, userID, householdID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[householdID][userID]
	return ok, nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[a.HouseholdID]; !ok {
		return core.Account{}, core.NotFound("household", a.HouseholdID)
	}
	if _, ok := s.accounts[a.ID]; ok {
		return core.Account{}, duplicateID("account", a.ID)
	}
	a.ID = newID(a.ID)
	s.accounts[a.ID] = a
	s.accountOrder = append(s.accountOrder, a.ID)
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, householdID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Account
	for _, id := range s.accountOrder {
		if a := s.accounts[id]; a.HouseholdID == householdID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) RenameAccount(_ context.Context, id, name string) error {
	if name == "" {
		return core.InvalidArgument("name", "cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.NotFound("account", id)
	}
	a.Name = name
	s.accounts[id] = a
	return nil
}

func (s *Store) ArchiveAccount(_ context.Context, id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.NotFound("account", id)
	}
	a.Archived = archived
	s.accounts[id] = a
	return nil
}

// Categories

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[c.HouseholdID]; !ok {
		return core.Category{}, core.NotFound("household", c.HouseholdID)
	}
	if _, ok := s.categories[c.ID]; ok {
		return core.Category{}, duplicateID("category", c.ID)
	}
	c.ID = newID(c.ID)
	c.Types = append([]core.CategoryType(nil), c.Types...)
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, householdID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.HouseholdID == householdID {
			c.Types = append([]core.CategoryType(nil), c.Types...)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Transactions

// checkTransactionRefs requires the account and the category to exist and
// to belong to the same household.
func (s *Store) checkTransactionRefs(tx core.Transaction) error {
	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return core.NotFound("account", tx.AccountID)
	}
	cat, ok := s.categories[tx.CategoryID]
	if !ok {
		return core.NotFound("category", tx.CategoryID)
	}
	if cat.HouseholdID != account.HouseholdID {
		return core.InvalidArgument("category_id",
			fmt.Sprintf("category %s belongs to a different household than account %s", cat.ID, account.ID))
	}
	return nil
}

func (s *Store) transactionIndex(id string) int {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransactionRefs(tx); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID != "" && s.transactionIndex(tx.ID) >= 0 {
		return core.Transaction{}, duplicateID("transaction", tx.ID)
	}
	tx.ID = newID(tx.ID)
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, core.NotFound("transaction", id)
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransactionRefs(tx); err != nil {
		return core.Transaction{}, err
	}
	for i := range s.transactions {
		if s.transactions[i].ID == tx.ID {
			s.transactions[i] = tx
			return tx, nil
		}
	}
	return core.Transaction{}, core.NotFound("transaction", tx.ID)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return core.NotFound("transaction", id)
}

func accountSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func within(date, until time.Time) bool {
	return until.IsZero() || !date.After(until)
}

// ListTransactions returns the transactions of the given accounts dated at
// or before until, oldest first. A zero until means the whole history.
func (s *Store) ListTransactions(_ context.Context, accountIDs []string, until time.Time) ([]core.Transaction, error) {
	set := accountSet(accountIDs)
	s.mu.RLock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if _, ok := set[tx.AccountID]; ok && within(tx.Date, until) {
			out = append(out, tx)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[b.HouseholdID]; !ok {
		return core.Budget{}, core.NotFound("household", b.HouseholdID)
	}
	if _, ok := s.budgets[b.ID]; ok {
		return core.Budget{}, duplicateID("budget", b.ID)
	}
	b.ID = newID(b.ID)
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFound("budget", id)
	}
	return b, nil
}

func (s *Store) LinkAccount(_ context.Context, budgetID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[budgetID]; !ok {
		return core.NotFound("budget", budgetID)
	}
	if _, ok := s.accounts[accountID]; !ok {
		return core.NotFound("account", accountID)
	}
	if s.links[budgetID] == nil {
		s.links[budgetID] = map[string]struct{}{}
	}
	s.links[budgetID][accountID] = struct{}{}
	return nil
}

func (s *Store) IsAccountLinked(_ context.Context, budgetID, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[budgetID][accountID]
	return ok, nil
}

// Allocations

// AppendAllocations checks every entry before writing any, so the batch is
// applied whole or not at all.
func (s *Store) AppendAllocations(_ context.Context, entries ...core.BudgetAllocation) ([]core.BudgetAllocation, error) {
	if len(entries) == 0 {
		return nil, core.InvalidArgument("entries", "at least one allocation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, ok := s.budgets[e.BudgetID]; !ok {
			return nil, core.NotFound("budget", e.BudgetID)
		}
		if e.Amount.IsZero() {
			return nil, core.InvalidArgument("amount", "must not be zero")
		}
	}
	now := s.now().UTC()
	out := make([]core.BudgetAllocation, len(entries))
	for i, e := range entries {
		e.ID = uuid.NewString()
		e.CreatedAt = now
		out[i] = e
	}
	s.allocations = append(s.allocations, out...)
	return out, nil
}

func (s *Store) ListAllocations(_ context.Context, householdID string) ([]core.BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BudgetAllocation
	for _, a := range s.allocations {
		if s.budgets[a.BudgetID].HouseholdID == householdID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListBudgetAllocations(_ context.Context, budgetID string) ([]core.BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BudgetAllocation
	for _, a := range s.allocations {
		if a.BudgetID == budgetID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Transfers

func (s *Store) checkTransferRefs(t core.Transfer) error {
	if _, ok := s.budgets[t.BudgetID]; !ok {
		return core.NotFound("budget", t.BudgetID)
	}
	for _, id := range []string{t.FromAccountID, t.ToAccountID} {
		if _, ok := s.accounts[id]; !ok {
			return core.NotFound("account", id)
		}
	}
	return nil
}

func (s *Store) CreateTransfer(_ context.Context, t core.Transfer) (core.Transfer, error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransferRefs(t); err != nil {
		return core.Transfer{}, err
	}
	if t.ID != "" {
		for _, existing := range s.transfers {
			if existing.ID == t.ID {
				return core.Transfer{}, duplicateID("transfer", t.ID)
			}
		}
	}
	t.ID = newID(t.ID)
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.transfers = append(s.transfers, t)
	return t, nil
}

func (s *Store) GetTransfer(_ context.Context, id string) (core.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transfers {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transfer{}, core.NotFound("transfer", id)
}

func (s *Store) UpdateTransfer(_ context.Context, t core.Transfer) (core.Transfer, error) {
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransferRefs(t); err != nil {
		return core.Transfer{}, err
	}
	for i := range s.transfers {
		if s.transfers[i].ID == t.ID {
			t.CreatedAt = s.transfers[i].CreatedAt
			t.UpdatedAt = s.now().UTC()
			s.transfers[i] = t
			return t, nil
		}
	}
	return core.Transfer{}, core.NotFound("transfer", t.ID)
}

func (s *Store) DeleteTransfer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transfers {
		if s.transfers[i].ID == id {
			s.transfers = append(s.transfers[:i], s.transfers[i+1:]...)
			return nil
		}
	}
	return core.NotFound("transfer", id)
}

func (s *Store) ListBudgetTransfers(_ context.Context, budgetID string) ([]core.Transfer, error) {
	s.mu.RLock()
	var out []core.Transfer
	for _, t := range s.transfers {
		if t.BudgetID == budgetID {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ListTransfers(_ context.Context, accountIDs []string, until time.Time) ([]core.Transfer, error) {
	set := accountSet(accountIDs)
	s.mu.RLock()
	var out []core.Transfer
	for _, t := range s.transfers {
		_, from := set[t.FromAccountID]
		_, to := set[t.ToAccountID]
		if (from || to) && within(t.Date, until) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
