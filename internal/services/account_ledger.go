package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
)

// AccountLedger reconstructs account balances from the transaction and
// transfer history. Nothing is cached: every call folds the rows again, so
// an edited or deleted transaction or transfer shows up on the next read.
type AccountLedger struct {
	store interface {
		AccountReader
		CategoryReader
		MovementReader
	}
	now    Clock
	logger *log.Logger
}

func NewAccountLedger(store interface {
	AccountReader
	CategoryReader
	MovementReader
}, now Clock) *AccountLedger {
	if now == nil {
		now = time.Now
	}
	return &AccountLedger{
		store:  store,
		now:    now,
		logger: log.Default().WithComponent(log.ComponentBalance),
	}
}

// CurrentBalance is BalanceAt with the clock's current time.
func (l *AccountLedger) CurrentBalance(ctx context.Context, accountID string) (core.Money, error) {
	return l.BalanceAt(ctx, accountID, l.now())
}

// BalanceAt returns the account's initial balance plus the signed sum of
// its transactions and transfers dated at or before ts.
func (l *AccountLedger) BalanceAt(ctx context.Context, accountID string, ts time.Time) (core.Money, error) {
	if ts.IsZero() {
		return core.Money{}, core.InvalidArgument("timestamp", "cannot be zero")
	}

	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}

	var (
		cats []core.Category
		txs  []core.Transaction
		trs  []core.Transfer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = l.store.ListCategories(gctx, account.HouseholdID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = l.store.ListTransactions(gctx, []string{accountID}, ts)
		return err
	})
	g.Go(func() error {
		var err error
		trs, err = l.store.ListTransfers(gctx, []string{accountID}, ts)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Money{}, fmt.Errorf("load history for account %s: %w", accountID, err)
	}

	balance, err := foldBalance(account, indexCategories(cats), txs, trs, ts)
	if err != nil {
		return core.Money{}, err
	}

	l.logger.DebugContext(ctx, "Balance computed",
		log.FieldAccountID, accountID,
		"at", ts,
		log.FieldAmountCents, balance.Cents,
		"transactions", len(txs),
		"transfers", len(trs))
	return balance, nil
}

func indexCategories(cats []core.Category) map[string]core.Category {
	m := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		m[c.ID] = c
	}
	return m
}

// foldBalance applies the sign rule to every row of account dated at or
// before ts. Rows of other accounts contribute nothing.
func foldBalance(account core.Account, cats map[string]core.Category, txs []core.Transaction, trs []core.Transfer, ts time.Time) (core.Money, error) {
	balance := account.InitialBalance
	for _, tx := range txs {
		if tx.AccountID != account.ID || tx.Date.After(ts) {
			continue
		}
		cat, ok := cats[tx.CategoryID]
		if !ok {
			return core.Money{}, core.NotFound("category", tx.CategoryID)
		}
		balance = balance.Add(core.SignedAmount(tx, cat))
	}
	for _, tr := range trs {
		if tr.Date.After(ts) {
			continue
		}
		balance = balance.Add(tr.DeltaFor(account.ID))
	}
	return balance, nil
}
