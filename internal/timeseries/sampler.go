// Package timeseries samples account balances across a date range for
// historical balance charts.
//
// Sample walks the full movement history once with a single forward cursor,
// so the cost is linear in movements plus boundaries no matter how many
// sample points are requested.
package timeseries

import (
	"sort"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

// Granularity is the spacing between sample boundaries.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Label layouts per granularity.
const (
	dailyLabel   = "Jan 2"
	weeklyLabel  = "Week of Jan 2"
	monthlyLabel = "Jan 2006"
)

// Input is everything the sampler reads. Transactions and transfers may
// include rows for accounts not listed in Accounts; those are ignored.
type Input struct {
	Accounts     []core.Account
	Categories   []core.Category
	Transactions []core.Transaction
	Transfers    []core.Transfer
}

// Snapshot is the balance of every requested account at one boundary.
// Balances follows the order of Input.Accounts.
type Snapshot struct {
	Date     time.Time
	Label    string
	Balances []core.Money
}

// Total is the sum of all balances in the snapshot.
func (s Snapshot) Total() core.Money {
	var total core.Money
	for _, b := range s.Balances {
		total = total.Add(b)
	}
	return total
}

type movement struct {
	date  time.Time
	slot  int // index into Input.Accounts
	delta core.Money
}

// ChooseGranularity picks the sampling step for the span between start and
// end: three calendar months or more is monthly, more than 31 days is
// weekly, anything shorter is daily.
func ChooseGranularity(start, end time.Time) Granularity {
	startDay, endDay := startOfDay(start), startOfDay(end.In(start.Location()))
	if !endDay.Before(addMonths(startDay, 3)) {
		return Monthly
	}
	if endDay.Sub(startDay) > 31*24*time.Hour {
		return Weekly
	}
	return Daily
}

// Sample returns one snapshot per boundary in [start, end]. A movement whose
// date equals a boundary's end of day is included in that boundary.
func Sample(in Input, start, end time.Time) ([]Snapshot, error) {
	if len(in.Accounts) == 0 {
		return nil, core.InvalidArgument("accounts", "at least one account is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, core.InvalidArgument("range", "start and end are required")
	}
	if end.Before(start) {
		return nil, core.InvalidArgument("range", "end is before start")
	}

	moves, err := collect(in)
	if err != nil {
		return nil, err
	}

	balances := make([]core.Money, len(in.Accounts))
	for i, a := range in.Accounts {
		balances[i] = a.InitialBalance
	}

	startDay := startOfDay(start)
	cursor := 0
	for cursor < len(moves) && moves[cursor].date.Before(startDay) {
		balances[moves[cursor].slot] = balances[moves[cursor].slot].Add(moves[cursor].delta)
		cursor++
	}

	granularity := ChooseGranularity(start, end)
	layout := labelLayout(granularity)
	bounds := boundaries(startDay, startOfDay(end.In(start.Location())), granularity)

	out := make([]Snapshot, 0, len(bounds))
	for _, b := range bounds {
		limit := endOfDay(b)
		for cursor < len(moves) && !moves[cursor].date.After(limit) {
			balances[moves[cursor].slot] = balances[moves[cursor].slot].Add(moves[cursor].delta)
			cursor++
		}
		out = append(out, Snapshot{
			Date:     b,
			Label:    b.Format(layout),
			Balances: append([]core.Money(nil), balances...),
		})
	}
	return out, nil
}

// collect flattens transactions and transfers into signed per-account
// movements sorted by date. The sort is stable so rows sharing a timestamp
// keep their input order.
func collect(in Input) ([]movement, error) {
	slots := make(map[string]int, len(in.Accounts))
	for i, a := range in.Accounts {
		slots[a.ID] = i
	}
	cats := make(map[string]core.Category, len(in.Categories))
	for _, c := range in.Categories {
		cats[c.ID] = c
	}

	moves := make([]movement, 0, len(in.Transactions)+2*len(in.Transfers))
	for _, tx := range in.Transactions {
		slot, ok := slots[tx.AccountID]
		if !ok {
			continue
		}
		cat, ok := cats[tx.CategoryID]
		if !ok {
			return nil, core.NotFound("category", tx.CategoryID)
		}
		moves = append(moves, movement{date: tx.Date, slot: slot, delta: core.SignedAmount(tx, cat)})
	}
	for _, tr := range in.Transfers {
		if slot, ok := slots[tr.FromAccountID]; ok {
			moves = append(moves, movement{date: tr.Date, slot: slot, delta: tr.DeltaFor(tr.FromAccountID)})
		}
		if slot, ok := slots[tr.ToAccountID]; ok {
			moves = append(moves, movement{date: tr.Date, slot: slot, delta: tr.DeltaFor(tr.ToAccountID)})
		}
	}

	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].date.Before(moves[j].date)
	})
	return moves, nil
}

// boundaries steps from startDay by the granularity while the step stays on
// or before endDay, then appends endDay if the last step fell short of it.
func boundaries(startDay, endDay time.Time, g Granularity) []time.Time {
	var out []time.Time
	for i := 0; ; i++ {
		var b time.Time
		switch g {
		case Monthly:
			b = addMonths(startDay, i)
		case Weekly:
			b = startDay.AddDate(0, 0, 7*i)
		default:
			b = startDay.AddDate(0, 0, i)
		}
		if b.After(endDay) {
			break
		}
		out = append(out, b)
	}
	if len(out) == 0 || out[len(out)-1].Before(endDay) {
		out = append(out, endDay)
	}
	return out
}

func labelLayout(g Granularity) string {
	switch g {
	case Monthly:
		return monthlyLabel
	case Weekly:
		return weeklyLabel
	default:
		return dailyLabel
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// addMonths adds n calendar months, clamping the day to the target month's
// last day (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
