package spending

import (
	"context"
	"fmt"
	"time"

	"pouch/internal/core"
)

// WalletStore is the wallet-side collaborator. Implementations must exclude
// soft-deleted rows and must have ownership already checked against userID.
type WalletStore interface {
	// FindScopeWallets returns the wallet plus its direct sub-wallets,
	// requested wallet first. A missing or foreign id yields
	// core.ErrWalletNotFound.
	FindScopeWallets(ctx context.Context, userID string, walletID int64) ([]core.Wallet, error)

	// DashboardRows returns the flattened dashboard row set for all of the
	// user's top-level, non-archived wallets: one row per in-period
	// transaction (sub-wallet transactions attributed to the parent) or a
	// single sentinel row for a wallet with none, ordered by display order.
	DashboardRows(ctx context.Context, userID string, windows PeriodWindows) ([]DashboardRow, error)
}

// TransactionStore is the transaction-side collaborator.
type TransactionStore interface {
	// FetchForBucketing returns non-deleted transactions for the wallet ids,
	// pre-filtered to the window when it is bounded. The engine still clips
	// whatever comes back, so the filter is an optimization, not a contract.
	FetchForBucketing(ctx context.Context, walletIDs []int64, window core.Span) ([]core.Transaction, error)
}

// Service exposes the two read operations of the aggregation engine. It
// performs no I/O of its own beyond the store calls and keeps no state
// between requests. The reference clock is injected so behavior is a pure
// function of its inputs.
type Service struct {
	wallets WalletStore
	txs     TransactionStore
	cal     core.Calendar
	now     func() time.Time
}

func NewService(wallets WalletStore, txs TransactionStore, cal core.Calendar, now func() time.Time) *Service {
	return &Service{wallets: wallets, txs: txs, cal: cal, now: now}
}

// DashboardWallets builds a WalletAggregate for every top-level wallet the
// user owns, each totalled over the wallet's own current spending period.
// Wallets without transactions yield a zero total and an empty list.
func (s *Service) DashboardWallets(ctx context.Context, userID, timezone string) ([]WalletAggregate, error) {
	loc, err := core.LoadTimezone(timezone)
	if err != nil {
		return nil, err
	}
	windows, err := CurrentWindows(s.cal, loc, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.wallets.DashboardRows(ctx, userID, windows)
	if err != nil {
		return nil, fmt.Errorf("dashboard rows: %w", err)
	}
	return FoldDashboard(rows), nil
}

// CurrentPeriodTotal aggregates one wallet (plus its direct sub-wallets)
// over the wallet's own current period. Absence of data is a zero result,
// never an error.
func (s *Service) CurrentPeriodTotal(ctx context.Context, userID string, walletID int64, timezone string) (WalletAggregate, error) {
	loc, err := core.LoadTimezone(timezone)
	if err != nil {
		return WalletAggregate{}, err
	}

	scope, err := s.wallets.FindScopeWallets(ctx, userID, walletID)
	if err != nil {
		return WalletAggregate{}, err
	}
	wallet := scope[0]

	span, err := s.cal.CurrentPeriodStart(wallet.SpendingPeriod, loc, s.now())
	if err != nil {
		return WalletAggregate{}, err
	}

	txs, err := s.txs.FetchForBucketing(ctx, walletIDs(scope), span)
	if err != nil {
		return WalletAggregate{}, fmt.Errorf("fetch transactions: %w", err)
	}

	bucket := core.AssignBuckets([]core.Span{span}, txs)[0]
	return WalletAggregate{
		Wallet:              wallet,
		SpendingPeriodTotal: bucket.Total,
		Transactions:        bucket.Transactions,
	}, nil
}

// ChartSeries builds the historical bucket series for one wallet's scope,
// most recent bucket first. All validation happens before any store call;
// ALL ignores limit and offset and returns a single all-time bucket.
func (s *Service) ChartSeries(ctx context.Context, userID string, walletID int64, unit, timezone string, limit, offset int) ([]core.PeriodBucket, error) {
	u, err := core.ParsePeriodUnit(unit)
	if err != nil {
		return nil, err
	}
	loc, err := core.LoadTimezone(timezone)
	if err != nil {
		return nil, err
	}
	spans, err := s.cal.BucketSeries(u, loc, s.now(), limit, offset)
	if err != nil {
		return nil, err
	}

	scope, err := s.wallets.FindScopeWallets(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txs.FetchForBucketing(ctx, walletIDs(scope), seriesWindow(spans))
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	buckets := core.AssignBuckets(spans, txs)
	labelSubWalletTransactions(buckets, scope)
	return buckets, nil
}

// seriesWindow is the union of a contiguous span series, used to pre-filter
// the store fetch.
func seriesWindow(spans []core.Span) core.Span {
	newest := spans[0]
	oldest := spans[len(spans)-1]
	if newest.Unbounded {
		return newest
	}
	return core.Span{Start: oldest.Start, End: newest.End}
}

// labelSubWalletTransactions replaces the category of transactions that
// belong to a sub-wallet with the sub-wallet's name, so charts attribute
// them to the sub-wallet rather than to a spending category.
func labelSubWalletTransactions(buckets []core.PeriodBucket, scope []core.Wallet) {
	if len(scope) < 2 {
		return
	}
	names := make(map[int64]string, len(scope)-1)
	for _, w := range scope[1:] {
		names[w.ID] = w.Name
	}
	for bi := range buckets {
		for ti := range buckets[bi].Transactions {
			if name, ok := names[buckets[bi].Transactions[ti].WalletID]; ok {
				buckets[bi].Transactions[ti].Category = core.Category(name)
			}
		}
	}
}

func walletIDs(ws []core.Wallet) []int64 {
	ids := make([]int64, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	return ids
}
