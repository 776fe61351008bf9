// Package spending composes the aggregation engine: it turns flat wallet and
// transaction rows into current-period totals for the dashboard and into
// time-bucketed series for charts.
package spending

import (
	"time"

	"pouch/internal/core"
)

// DashboardRow is one row of the flattened set the store produces for the
// dashboard: wallet fields repeated per transaction. Tx is nil for the single
// sentinel row of a wallet with no current-period transactions.
type DashboardRow struct {
	Wallet core.Wallet
	Tx     *core.Transaction
}

// WalletAggregate is a wallet together with its spending total for its own
// current period and the transactions that made it up. Transactions is
// always a non-nil slice.
type WalletAggregate struct {
	core.Wallet
	SpendingPeriodTotal core.Money         `json:"spendingPeriodTotal"`
	Transactions        []core.Transaction `json:"transactions"`
}

// FoldDashboard groups rows by top-level wallet id in first-seen order and
// accumulates each group's total. Rows are assumed pre-sorted by the store
// (display order), pre-scoped (a parent's rows include its sub-wallets'
// transactions) and pre-filtered to each wallet's own current period. The
// fold is pure: one pass, no I/O, no shared state.
func FoldDashboard(rows []DashboardRow) []WalletAggregate {
	var out []WalletAggregate
	index := make(map[int64]int)

	for _, r := range rows {
		i, seen := index[r.Wallet.ID]
		if !seen {
			i = len(out)
			index[r.Wallet.ID] = i
			out = append(out, WalletAggregate{
				Wallet:              r.Wallet,
				SpendingPeriodTotal: core.ZeroMoney,
				Transactions:        []core.Transaction{},
			})
		}
		if r.Tx == nil {
			continue
		}
		out[i].SpendingPeriodTotal = out[i].SpendingPeriodTotal.Add(r.Tx.Amount)
		out[i].Transactions = append(out[i].Transactions, *r.Tx)
	}
	return out
}

// PeriodWindows carries the current half-open [start, end) window for every
// bounded unit, precomputed in the caller's timezone. The store selects the
// window matching each wallet's own unit; ALL wallets get an unclamped one.
type PeriodWindows struct {
	Day   core.Span
	Week  core.Span
	Month core.Span
	Year  core.Span
}

// CurrentWindows computes the period windows for one reference instant.
func CurrentWindows(cal core.Calendar, loc *time.Location, now time.Time) (PeriodWindows, error) {
	var pw PeriodWindows
	day, err := cal.CurrentPeriodStart(core.PeriodDay, loc, now)
	if err != nil {
		return pw, err
	}
	week, err := cal.CurrentPeriodStart(core.PeriodWeek, loc, now)
	if err != nil {
		return pw, err
	}
	month, err := cal.CurrentPeriodStart(core.PeriodMonth, loc, now)
	if err != nil {
		return pw, err
	}
	year, err := cal.CurrentPeriodStart(core.PeriodYear, loc, now)
	if err != nil {
		return pw, err
	}
	pw.Day, pw.Week, pw.Month, pw.Year = day, week, month, year
	return pw, nil
}
