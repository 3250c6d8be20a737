package timeseries

import (
	"errors"
	"testing"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixture() Input {
	return Input{
		Accounts: []core.Account{
			{ID: "checking", InitialBalance: core.Cents(1000)},
			{ID: "savings", InitialBalance: core.Cents(500)},
		},
		Categories: []core.Category{
			{ID: "groceries", Types: []core.CategoryType{core.Expense}},
			{ID: "salary", Types: []core.CategoryType{core.Income}},
			{ID: "refunds", Types: []core.CategoryType{core.Income, core.Expense}},
		},
	}
}

func TestChooseGranularity(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       Granularity
	}{
		{"same day", day(2024, 1, 1), day(2024, 1, 1), Daily},
		{"exactly 31 days", day(2024, 1, 1), day(2024, 2, 1), Daily},
		{"32 days", day(2024, 1, 1), day(2024, 2, 2), Weekly},
		{"just under three months", day(2024, 1, 1), day(2024, 3, 31), Weekly},
		{"exactly three months", day(2024, 1, 1), day(2024, 4, 1), Monthly},
		{"a year", day(2024, 1, 1), day(2025, 1, 1), Monthly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseGranularity(tt.start, tt.end); got != tt.want {
				t.Errorf("ChooseGranularity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSample_EmptyHistoryYieldsInitialBalances(t *testing.T) {
	snaps, err := Sample(fixture(), day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("expected 5 daily snapshots, got %d", len(snaps))
	}
	for _, s := range snaps {
		if s.Balances[0].Cents != 1000 || s.Balances[1].Cents != 500 {
			t.Fatalf("snapshot %s balances = %v, want [1000 500]", s.Label, s.Balances)
		}
		if s.Total().Cents != 1500 {
			t.Fatalf("snapshot total = %d, want 1500", s.Total().Cents)
		}
	}
}

func TestSample_BoundaryIsInclusive(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		{ID: "t1", AccountID: "checking", CategoryID: "groceries", Amount: core.Cents(100), Date: day(2024, 1, 2)},
	}

	snaps, err := Sample(in, day(2024, 1, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if got := snaps[0].Balances[0].Cents; got != 1000 {
		t.Errorf("day-1 balance = %d, want 1000 (transaction excluded)", got)
	}
	if got := snaps[1].Balances[0].Cents; got != 900 {
		t.Errorf("day-2 balance = %d, want 900 (transaction included)", got)
	}
}

func TestSample_EndOfDayIsInclusive(t *testing.T) {
	in := fixture()
	lastInstant := day(2024, 1, 1).Add(24*time.Hour - time.Nanosecond)
	in.Transactions = []core.Transaction{
		{ID: "t1", AccountID: "checking", CategoryID: "salary", Amount: core.Cents(50), Date: lastInstant},
	}

	snaps, err := Sample(in, day(2024, 1, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got := snaps[0].Balances[0].Cents; got != 1050 {
		t.Errorf("day-1 balance = %d, want 1050", got)
	}
}

func TestSample_HistoryBeforeWindowSeedsBaseline(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		{ID: "t1", AccountID: "checking", CategoryID: "groceries", Amount: core.Cents(200), Date: day(2023, 12, 1)},
		{ID: "t2", AccountID: "checking", CategoryID: "salary", Amount: core.Cents(300), Date: day(2024, 1, 3)},
		{ID: "t3", AccountID: "savings", CategoryID: "refunds", Amount: core.Cents(50), Date: day(2023, 6, 1)},
		{ID: "t4", AccountID: "other", CategoryID: "salary", Amount: core.Cents(999), Date: day(2024, 1, 2)},
	}

	snaps, err := Sample(in, day(2024, 1, 1), day(2024, 1, 4))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	want := [][2]int64{{800, 450}, {800, 450}, {1100, 450}, {1100, 450}}
	for i, s := range snaps {
		if s.Balances[0].Cents != want[i][0] || s.Balances[1].Cents != want[i][1] {
			t.Errorf("snapshot %d = [%d %d], want %v", i, s.Balances[0].Cents, s.Balances[1].Cents, want[i])
		}
	}
}

func TestSample_TransfersAreParallelSource(t *testing.T) {
	in := fixture()
	in.Transfers = []core.Transfer{
		{ID: "x1", FromAccountID: "checking", ToAccountID: "savings", Amount: core.Cents(100), Date: day(2024, 1, 2)},
	}

	snaps, err := Sample(in, day(2024, 1, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if snaps[0].Balances[0].Cents != 1000 || snaps[0].Balances[1].Cents != 500 {
		t.Errorf("day-1 = %v, want unchanged", snaps[0].Balances)
	}
	if snaps[1].Balances[0].Cents != 900 || snaps[1].Balances[1].Cents != 600 {
		t.Errorf("day-2 = %v, want [900 600]", snaps[1].Balances)
	}
	if snaps[1].Total().Cents != 1500 {
		t.Errorf("transfers must net to zero, total = %d", snaps[1].Total().Cents)
	}
}

func TestSample_WeeklyBoundariesEndOnEndDay(t *testing.T) {
	snaps, err := Sample(fixture(), day(2024, 1, 1), day(2024, 2, 10))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	// Jan 1, 8, 15, 22, 29, Feb 5, then Feb 10 appended.
	if len(snaps) != 7 {
		t.Fatalf("expected 7 weekly snapshots, got %d", len(snaps))
	}
	if !snaps[6].Date.Equal(day(2024, 2, 10)) {
		t.Errorf("last boundary = %v, want Feb 10", snaps[6].Date)
	}
	if snaps[1].Label != "Week of Jan 8" {
		t.Errorf("weekly label = %q", snaps[1].Label)
	}
}

func TestSample_MonthlyBoundariesClampDay(t *testing.T) {
	snaps, err := Sample(fixture(), day(2024, 1, 31), day(2024, 5, 31))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	want := []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30), day(2024, 5, 31)}
	if len(snaps) != len(want) {
		t.Fatalf("expected %d monthly snapshots, got %d", len(want), len(snaps))
	}
	for i, w := range want {
		if !snaps[i].Date.Equal(w) {
			t.Errorf("boundary %d = %v, want %v", i, snaps[i].Date, w)
		}
	}
	if snaps[1].Label != "Feb 2024" {
		t.Errorf("monthly label = %q", snaps[1].Label)
	}
}

func TestSample_DailyLabel(t *testing.T) {
	snaps, err := Sample(fixture(), day(2024, 3, 9), day(2024, 3, 9))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(snaps) != 1 || snaps[0].Label != "Mar 9" {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
}

func TestSample_SnapshotsAreIndependent(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		{ID: "t1", AccountID: "checking", CategoryID: "salary", Amount: core.Cents(10), Date: day(2024, 1, 2)},
	}
	snaps, err := Sample(in, day(2024, 1, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	snaps[0].Balances[0] = core.Cents(0)
	if snaps[1].Balances[0].Cents != 1010 {
		t.Fatalf("snapshots share balance storage")
	}
}

func TestSample_Errors(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		start time.Time
		end   time.Time
		kind  error
	}{
		{"no accounts", Input{}, day(2024, 1, 1), day(2024, 1, 2), core.ErrInvalidArgument},
		{"end before start", fixture(), day(2024, 1, 2), day(2024, 1, 1), core.ErrInvalidArgument},
		{"zero start", fixture(), time.Time{}, day(2024, 1, 1), core.ErrInvalidArgument},
		{
			"unknown category",
			Input{
				Accounts:     []core.Account{{ID: "checking"}},
				Transactions: []core.Transaction{{AccountID: "checking", CategoryID: "missing", Amount: core.Cents(1), Date: day(2024, 1, 1)}},
			},
			day(2024, 1, 1), day(2024, 1, 2), core.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sample(tt.in, tt.start, tt.end)
			if !errors.Is(err, tt.kind) {
				t.Errorf("Sample() error = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestSample_IsPure(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		{ID: "b", AccountID: "checking", CategoryID: "salary", Amount: core.Cents(5), Date: day(2024, 1, 3)},
		{ID: "a", AccountID: "checking", CategoryID: "groceries", Amount: core.Cents(7), Date: day(2024, 1, 2)},
	}
	first, _ := Sample(in, day(2024, 1, 1), day(2024, 1, 4))
	second, _ := Sample(in, day(2024, 1, 1), day(2024, 1, 4))
	for i := range first {
		if first[i].Total() != second[i].Total() {
			t.Fatalf("repeated calls differ at %d", i)
		}
	}
	if in.Transactions[0].ID != "b" {
		t.Fatalf("input slice was reordered")
	}
}
