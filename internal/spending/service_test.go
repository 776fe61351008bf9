package spending

import (
	"context"
	"errors"
	"testing"
	"time"

	"pouch/internal/core"
)

type fakeWalletStore struct {
	scopes map[int64][]core.Wallet
	rows   []DashboardRow

	lastWindows PeriodWindows
}

func (f *fakeWalletStore) FindScopeWallets(_ context.Context, userID string, walletID int64) ([]core.Wallet, error) {
	scope, ok := f.scopes[walletID]
	if !ok || scope[0].UserID != userID {
		return nil, core.ErrWalletNotFound
	}
	return scope, nil
}

func (f *fakeWalletStore) DashboardRows(_ context.Context, _ string, windows PeriodWindows) ([]DashboardRow, error) {
	f.lastWindows = windows
	return f.rows, nil
}

type fakeTransactionStore struct {
	txs []core.Transaction

	lastIDs    []int64
	lastWindow core.Span
	called     bool
}

func (f *fakeTransactionStore) FetchForBucketing(_ context.Context, walletIDs []int64, window core.Span) ([]core.Transaction, error) {
	f.called = true
	f.lastIDs = walletIDs
	f.lastWindow = window
	var out []core.Transaction
	for _, tx := range f.txs {
		for _, id := range walletIDs {
			if tx.WalletID == id && (window.Unbounded || window.Contains(tx.PaidAt)) {
				out = append(out, tx)
			}
		}
	}
	return out, nil
}

// now is mid-March so last month's spend lands in a different Month bucket.
var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func scenarioStores(t *testing.T) (*fakeWalletStore, *fakeTransactionStore) {
	t.Helper()
	parentID := int64(1)
	groceries := core.Wallet{ID: 1, UserID: "u1", Name: "Groceries", SpendingPeriod: core.PeriodMonth}
	sub := core.Wallet{ID: 2, UserID: "u1", Name: "Snacks", SpendingPeriod: core.PeriodMonth, SubWalletOf: &parentID}

	wallets := &fakeWalletStore{scopes: map[int64][]core.Wallet{
		1: {groceries, sub},
		2: {sub},
	}}
	txs := &fakeTransactionStore{txs: []core.Transaction{
		{ID: 1, WalletID: 1, Amount: money(t, "10.00"), Category: core.CategoryFood, Description: "a", PaidAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{ID: 2, WalletID: 1, Amount: money(t, "5.50"), Category: core.CategoryFood, Description: "b", PaidAt: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{ID: 3, WalletID: 1, Amount: money(t, "100.00"), Category: core.CategoryShopping, Description: "c", PaidAt: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
		{ID: 4, WalletID: 2, Amount: money(t, "3.25"), Category: core.CategoryFood, Description: "d", PaidAt: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
	}}
	return wallets, txs
}

func newTestService(wallets *fakeWalletStore, txs *fakeTransactionStore) *Service {
	return NewService(wallets, txs, core.DefaultCalendar(), func() time.Time { return testNow })
}

func TestCurrentPeriodTotalIncludesSubWallets(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	agg, err := svc.CurrentPeriodTotal(context.Background(), "u1", 1, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := agg.SpendingPeriodTotal.String(); got != "18.75" {
		t.Fatalf("expected 18.75, got %s", got)
	}
	if len(agg.Transactions) != 3 {
		t.Fatalf("expected 3 in-period transactions, got %d", len(agg.Transactions))
	}
	if len(txs.lastIDs) != 2 {
		t.Fatalf("expected scope of 2 wallet ids, got %v", txs.lastIDs)
	}
}

func TestCurrentPeriodTotalSubWalletStandsAlone(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	agg, err := svc.CurrentPeriodTotal(context.Background(), "u1", 2, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := agg.SpendingPeriodTotal.String(); got != "3.25" {
		t.Fatalf("expected 3.25, got %s", got)
	}
}

func TestCurrentPeriodTotalEmptyWalletIsZero(t *testing.T) {
	wallets := &fakeWalletStore{scopes: map[int64][]core.Wallet{
		7: {{ID: 7, UserID: "u1", Name: "Idle", SpendingPeriod: core.PeriodWeek}},
	}}
	svc := newTestService(wallets, &fakeTransactionStore{})

	agg, err := svc.CurrentPeriodTotal(context.Background(), "u1", 7, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !agg.SpendingPeriodTotal.IsZero() {
		t.Fatalf("expected zero total, got %s", agg.SpendingPeriodTotal)
	}
	if agg.Transactions == nil || len(agg.Transactions) != 0 {
		t.Fatalf("expected empty, non-nil transaction list")
	}
}

func TestCurrentPeriodTotalWalletNotFound(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	if _, err := svc.CurrentPeriodTotal(context.Background(), "someone-else", 1, "UTC"); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
	if _, err := svc.CurrentPeriodTotal(context.Background(), "u1", 99, "UTC"); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestChartSeriesMonthScenario(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	buckets, err := svc.ChartSeries(context.Background(), "u1", 1, "MONTH", "UTC", 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	// Most recent first.
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !buckets[0].StartPeriod.Equal(want) {
		t.Fatalf("bucket 0 start: expected %s, got %s", want, buckets[0].StartPeriod)
	}
	if got := buckets[0].Total.String(); got != "18.75" {
		t.Fatalf("bucket 0 total: expected 18.75, got %s", got)
	}
	if got := buckets[1].Total.String(); got != "100.00" {
		t.Fatalf("bucket 1 total: expected 100.00, got %s", got)
	}
	if got := buckets[2].Total.String(); got != "0.00" {
		t.Fatalf("bucket 2 total: expected 0.00, got %s", got)
	}
	if buckets[2].Transactions == nil {
		t.Fatalf("empty bucket list must be non-nil")
	}
}

func TestChartSeriesLabelsSubWalletSpend(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	buckets, err := svc.ChartSeries(context.Background(), "u1", 1, "MONTH", "UTC", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, tx := range buckets[0].Transactions {
		if tx.WalletID == 2 {
			found = true
			if string(tx.Category) != "Snacks" {
				t.Fatalf("sub-wallet spend should carry the sub-wallet name, got %s", tx.Category)
			}
		} else if tx.Category == core.Category("Snacks") {
			t.Fatalf("parent transaction %d mislabelled", tx.ID)
		}
	}
	if !found {
		t.Fatalf("expected the sub-wallet transaction in the current bucket")
	}
}

func TestChartSeriesAllIgnoresLimitOffset(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	buckets, err := svc.ChartSeries(context.Background(), "u1", 1, "ALL", "UTC", 5, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected a single all-time bucket, got %d", len(buckets))
	}
	if !buckets[0].StartPeriod.Equal(testNow) {
		t.Fatalf("all-time bucket start should be the reference instant")
	}
	if got := buckets[0].Total.String(); got != "118.75" {
		t.Fatalf("expected 118.75, got %s", got)
	}
}

func TestChartSeriesOffsetShiftsWindow(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	buckets, err := svc.ChartSeries(context.Background(), "u1", 1, "MONTH", "UTC", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !buckets[0].StartPeriod.Equal(want) {
		t.Fatalf("offset bucket start: expected %s, got %s", want, buckets[0].StartPeriod)
	}
	if got := buckets[0].Total.String(); got != "100.00" {
		t.Fatalf("expected 100.00, got %s", got)
	}
}

func TestChartSeriesValidatesBeforeStoreCalls(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	cases := []struct {
		name     string
		unit     string
		timezone string
		limit    int
		want     error
	}{
		{"bad unit", "DECADE", "UTC", 3, core.ErrInvalidPeriodUnit},
		{"bad timezone", "MONTH", "Mars/Olympus", 3, core.ErrInvalidTimezone},
		{"zero limit", "MONTH", "UTC", 0, core.ErrInvalidLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txs.called = false
			_, err := svc.ChartSeries(context.Background(), "u1", 1, tc.unit, tc.timezone, tc.limit, 0)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if txs.called {
				t.Fatalf("store must not be called on invalid input")
			}
		})
	}
}

func TestDashboardWalletsUsesPerUnitStarts(t *testing.T) {
	wallets, txs := scenarioStores(t)
	wallets.rows = []DashboardRow{
		{Wallet: core.Wallet{ID: 1, UserID: "u1", Name: "Groceries"}, Tx: &core.Transaction{WalletID: 1, Amount: money(t, "18.75")}},
	}
	svc := newTestService(wallets, txs)

	aggs, err := svc.DashboardWallets(context.Background(), "u1", "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aggs) != 1 || aggs[0].SpendingPeriodTotal.String() != "18.75" {
		t.Fatalf("unexpected aggregates: %+v", aggs)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !wallets.lastWindows.Month.Start.Equal(want) {
		t.Fatalf("month start passed to store: expected %s, got %s", want, wallets.lastWindows.Month.Start)
	}
	if want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC); !wallets.lastWindows.Month.End.Equal(want) {
		t.Fatalf("month end passed to store: expected %s, got %s", want, wallets.lastWindows.Month.End)
	}
}

func TestDashboardWalletsBadTimezone(t *testing.T) {
	wallets, txs := scenarioStores(t)
	svc := newTestService(wallets, txs)

	if _, err := svc.DashboardWallets(context.Background(), "u1", "Nowhere/Nope"); !errors.Is(err, core.ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}
}
