package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
	"github.com/jonssons-io/project-yoshi-sub001/internal/timeseries"
)

// BalanceSeries loads a household's history and hands it to the sampler.
type BalanceSeries struct {
	store interface {
		Membership
		AccountReader
		CategoryReader
		MovementReader
	}
	logger *log.Logger
}

func NewBalanceSeries(store interface {
	Membership
	AccountReader
	CategoryReader
	MovementReader
}) *BalanceSeries {
	return &BalanceSeries{
		store:  store,
		logger: log.Default().WithComponent(log.ComponentBalance),
	}
}

// Series samples the balances of accountIDs over [start, end]. An empty
// accountIDs selects every account of the household. Snapshot balances
// follow the order of accountIDs.
func (s *BalanceSeries) Series(ctx context.Context, actor, householdID string, accountIDs []string, start, end time.Time) ([]timeseries.Snapshot, error) {
	if err := requireMember(ctx, s.store, actor, householdID); err != nil {
		return nil, err
	}

	all, err := s.store.ListAccounts(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := selectAccounts(all, accountIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	in := timeseries.Input{Accounts: accounts}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Categories, err = s.store.ListCategories(gctx, householdID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Transactions, err = s.store.ListTransactions(gctx, ids, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		in.Transfers, err = s.store.ListTransfers(gctx, ids, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load household history: %w", err)
	}

	snaps, err := timeseries.Sample(in, start, end)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Balance series sampled",
		log.FieldOperation, log.OpSeries,
		log.FieldHouseholdID, householdID,
		"accounts", len(accounts),
		"points", len(snaps),
		"granularity", timeseries.ChooseGranularity(start, end))
	return snaps, nil
}

// selectAccounts resolves ids against the household's accounts, keeping the
// requested order. An id outside the household is NotFound.
func selectAccounts(all []core.Account, ids []string) ([]core.Account, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]core.Account, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	seen := make(map[string]bool, len(ids))
	out := make([]core.Account, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, core.InvalidArgument("account_ids", "duplicate account "+id)
		}
		seen[id] = true
		a, ok := byID[id]
		if !ok {
			return nil, core.NotFound("account", id)
		}
		out = append(out, a)
	}
	return out, nil
}
