package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pouch/internal/core"
	"pouch/internal/spending"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "pouch.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustMoney(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func createWallet(t *testing.T, repo *SQLiteRepository, userID, name string, unit core.PeriodUnit, parent *int64) core.Wallet {
	t.Helper()
	w, err := repo.CreateWallet(context.Background(), core.Wallet{
		UserID:         userID,
		Name:           name,
		Currency:       "EUR",
		Country:        "IT",
		SpendingPeriod: unit,
		SubWalletOf:    parent,
	})
	if err != nil {
		t.Fatalf("create wallet %s: %v", name, err)
	}
	return w
}

func createTx(t *testing.T, repo *SQLiteRepository, walletID int64, amount string, paidAt time.Time) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		WalletID:    walletID,
		Amount:      mustMoney(t, amount),
		Category:    core.CategoryFood,
		Description: "test spend",
		PaidAt:      paidAt,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestCreateWalletAssignsOrderIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := createWallet(t, repo, "u1", "First", core.PeriodMonth, nil)
	second := createWallet(t, repo, "u1", "Second", core.PeriodWeek, nil)
	other := createWallet(t, repo, "u2", "Other", core.PeriodMonth, nil)

	if first.OrderIndex != 0 || second.OrderIndex != 1 {
		t.Fatalf("expected order 0,1, got %d,%d", first.OrderIndex, second.OrderIndex)
	}
	if other.OrderIndex != 0 {
		t.Fatalf("order index counts per user, got %d", other.OrderIndex)
	}

	got, err := repo.GetWallet(ctx, "u1", second.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if got.Name != "Second" || got.SpendingPeriod != core.PeriodWeek {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGetWalletEnforcesOwnership(t *testing.T) {
	repo := newTestRepo(t)
	w := createWallet(t, repo, "u1", "Mine", core.PeriodMonth, nil)

	if _, err := repo.GetWallet(context.Background(), "u2", w.ID); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestListWalletsTopLevelOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parent := createWallet(t, repo, "u1", "Parent", core.PeriodMonth, nil)
	createWallet(t, repo, "u1", "Child", core.PeriodMonth, &parent.ID)
	archived := createWallet(t, repo, "u1", "Old", core.PeriodMonth, nil)

	now := time.Now()
	archived.ArchivedAt = &now
	if _, err := repo.UpdateWallet(ctx, archived); err != nil {
		t.Fatalf("archive wallet: %v", err)
	}

	wallets, err := repo.ListWallets(ctx, "u1")
	if err != nil {
		t.Fatalf("list wallets: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Name != "Parent" {
		t.Fatalf("expected only the parent wallet, got %+v", wallets)
	}
}

func TestFindScopeWallets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parent := createWallet(t, repo, "u1", "Parent", core.PeriodMonth, nil)
	sub := createWallet(t, repo, "u1", "Sub", core.PeriodMonth, &parent.ID)
	removed := createWallet(t, repo, "u1", "Gone", core.PeriodMonth, &parent.ID)
	if err := repo.DeleteWallet(ctx, "u1", removed.ID); err != nil {
		t.Fatalf("delete sub-wallet: %v", err)
	}

	scope, err := repo.FindScopeWallets(ctx, "u1", parent.ID)
	if err != nil {
		t.Fatalf("find scope: %v", err)
	}
	if len(scope) != 2 || scope[0].ID != parent.ID || scope[1].ID != sub.ID {
		t.Fatalf("unexpected scope: %+v", scope)
	}

	scope, err = repo.FindScopeWallets(ctx, "u1", sub.ID)
	if err != nil {
		t.Fatalf("find sub scope: %v", err)
	}
	if len(scope) != 1 || scope[0].ID != sub.ID {
		t.Fatalf("sub-wallet scope must be itself, got %+v", scope)
	}

	if _, err := repo.FindScopeWallets(ctx, "u1", 999); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestDeleteWalletCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parent := createWallet(t, repo, "u1", "Parent", core.PeriodMonth, nil)
	sub := createWallet(t, repo, "u1", "Sub", core.PeriodMonth, &parent.ID)
	tx := createTx(t, repo, sub.ID, "9.99", time.Now())

	if err := repo.DeleteWallet(ctx, "u1", parent.ID); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	if _, err := repo.GetWallet(ctx, "u1", sub.ID); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("sub-wallet should be gone, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "u1", tx.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("transaction should be gone, got %v", err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w := createWallet(t, repo, "u1", "W", core.PeriodMonth, nil)
	paid := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	created := createTx(t, repo, w.ID, "15.50", paid)

	got, err := repo.GetTransaction(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Amount.String() != "15.50" || !got.PaidAt.Equal(paid) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Amount = mustMoney(t, "20.00")
	got.Description = "updated"
	if _, err := repo.UpdateTransaction(ctx, "u1", got); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	got, err = repo.GetTransaction(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Amount.String() != "20.00" || got.Description != "updated" {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := repo.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "u1", created.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows after delete, got %v", err)
	}
}

func TestFetchForBucketingWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w := createWallet(t, repo, "u1", "W", core.PeriodMonth, nil)
	other := createWallet(t, repo, "u1", "Other", core.PeriodMonth, nil)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	inWindow := createTx(t, repo, w.ID, "10.00", start)
	createTx(t, repo, w.ID, "5.00", end)                        // on the exclusive end
	createTx(t, repo, w.ID, "7.00", start.Add(-time.Second))    // before the window
	createTx(t, repo, other.ID, "99.00", start.Add(time.Hour))  // other wallet
	deleted := createTx(t, repo, w.ID, "1.00", start.Add(time.Hour))
	if err := repo.DeleteTransaction(ctx, "u1", deleted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	txs, err := repo.FetchForBucketing(ctx, []int64{w.ID}, core.Span{Start: start, End: end})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != inWindow.ID {
		t.Fatalf("expected only the in-window transaction, got %+v", txs)
	}

	all, err := repo.FetchForBucketing(ctx, []int64{w.ID, other.ID}, core.Span{Unbounded: true})
	if err != nil {
		t.Fatalf("fetch unbounded: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("unbounded fetch should span all live rows, got %d", len(all))
	}
}

// marchWindows pins the dashboard windows to 2024-03-15 in UTC.
func marchWindows() spending.PeriodWindows {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	week := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	month := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	year := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return spending.PeriodWindows{
		Day:   core.Span{Start: day, End: day.AddDate(0, 0, 1)},
		Week:  core.Span{Start: week, End: week.AddDate(0, 0, 7)},
		Month: core.Span{Start: month, End: month.AddDate(0, 1, 0)},
		Year:  core.Span{Start: year, End: year.AddDate(1, 0, 0)},
	}
}

func TestDashboardRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parent := createWallet(t, repo, "u1", "Groceries", core.PeriodMonth, nil)
	sub := createWallet(t, repo, "u1", "Snacks", core.PeriodMonth, &parent.ID)
	idle := createWallet(t, repo, "u1", "Idle", core.PeriodWeek, nil)

	monthStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	createTx(t, repo, parent.ID, "10.00", monthStart.AddDate(0, 0, 4))
	createTx(t, repo, parent.ID, "5.50", monthStart.AddDate(0, 0, 11))
	createTx(t, repo, sub.ID, "3.25", monthStart.AddDate(0, 0, 7))
	createTx(t, repo, parent.ID, "100.00", monthStart.AddDate(0, -1, 19)) // previous month
	createTx(t, repo, parent.ID, "99.00", monthStart.AddDate(0, 1, 2))    // next month

	rows, err := repo.DashboardRows(ctx, "u1", marchWindows())
	if err != nil {
		t.Fatalf("dashboard rows: %v", err)
	}

	aggs := spending.FoldDashboard(rows)
	if len(aggs) != 2 {
		t.Fatalf("expected 2 top-level wallets, got %d", len(aggs))
	}
	if aggs[0].Name != "Groceries" || aggs[1].Name != "Idle" {
		t.Fatalf("unexpected wallet order: %s, %s", aggs[0].Name, aggs[1].Name)
	}
	if got := aggs[0].SpendingPeriodTotal.String(); got != "18.75" {
		t.Fatalf("groceries total: expected 18.75, got %s", got)
	}
	if got := aggs[1].SpendingPeriodTotal.String(); got != "0.00" {
		t.Fatalf("idle total: expected 0.00, got %s", got)
	}
	if aggs[1].ID != idle.ID {
		t.Fatalf("expected idle wallet id %d, got %d", idle.ID, aggs[1].ID)
	}
	if aggs[1].Transactions == nil || len(aggs[1].Transactions) != 0 {
		t.Fatalf("idle wallet must have an empty, non-nil list")
	}
}

func TestDashboardRowsFutureTransactionsExcluded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w := createWallet(t, repo, "u1", "Groceries", core.PeriodMonth, nil)
	createTx(t, repo, w.ID, "99.00", time.Date(2024, 4, 3, 10, 0, 0, 0, time.UTC)) // next month

	rows, err := repo.DashboardRows(ctx, "u1", marchWindows())
	if err != nil {
		t.Fatalf("dashboard rows: %v", err)
	}

	aggs := spending.FoldDashboard(rows)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 wallet, got %d", len(aggs))
	}
	if got := aggs[0].SpendingPeriodTotal.String(); got != "0.00" {
		t.Fatalf("future-dated spending must not count, got %s", got)
	}
	if len(aggs[0].Transactions) != 0 {
		t.Fatalf("expected no in-period transactions, got %d", len(aggs[0].Transactions))
	}
}

func TestDashboardRowsAllPeriodSpansEverything(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w := createWallet(t, repo, "u1", "Lifetime", core.PeriodAll, nil)
	createTx(t, repo, w.ID, "1.00", time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC))
	createTx(t, repo, w.ID, "2.00", time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	createTx(t, repo, w.ID, "4.00", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	rows, err := repo.DashboardRows(ctx, "u1", marchWindows())
	if err != nil {
		t.Fatalf("dashboard rows: %v", err)
	}

	aggs := spending.FoldDashboard(rows)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 wallet, got %d", len(aggs))
	}
	if got := aggs[0].SpendingPeriodTotal.String(); got != "7.00" {
		t.Fatalf("ALL wallet must sum all history, got %s", got)
	}
}

func TestTimezoneSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tz, err := repo.GetTimezone(ctx, "u1")
	if err != nil {
		t.Fatalf("get timezone: %v", err)
	}
	if tz != "UTC" {
		t.Fatalf("expected UTC default, got %s", tz)
	}

	if err := repo.SetTimezone(ctx, "u1", "Europe/Rome"); err != nil {
		t.Fatalf("set timezone: %v", err)
	}
	if err := repo.SetTimezone(ctx, "u1", "America/New_York"); err != nil {
		t.Fatalf("overwrite timezone: %v", err)
	}
	tz, err = repo.GetTimezone(ctx, "u1")
	if err != nil {
		t.Fatalf("get timezone: %v", err)
	}
	if tz != "America/New_York" {
		t.Fatalf("expected America/New_York, got %s", tz)
	}
}

func TestSyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w := createWallet(t, repo, "u1", "W", core.PeriodMonth, nil)
	first := createTx(t, repo, w.ID, "1.00", time.Now())
	second := createTx(t, repo, w.ID, "2.00", time.Now())

	pending, err := repo.ListUnsynced(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if err := repo.MarkSynced(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.ListUnsynced(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("expected only the second transaction pending, got %+v", pending)
	}

	// An update re-queues the row for mirroring.
	second.Description = "changed"
	if _, err := repo.UpdateTransaction(ctx, "u1", second); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.MarkSynced(ctx, second.ID, time.Now()); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.ListUnsynced(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}
