package core

import (
	"sort"
	"time"
)

// PeriodBucket is one time-bounded aggregation window of a chart series.
// Transactions is always a non-nil slice; a bucket with no matching
// transactions reports a zero total and an empty list, never null.
type PeriodBucket struct {
	StartPeriod  time.Time     `json:"startPeriod"`
	Total        Money         `json:"spendingPeriodTotal"`
	Transactions []Transaction `json:"transactions"`
}

// AssignBuckets distributes transactions over a span series and sums their
// amounts per bucket. Spans must be ordered most recent first, as produced
// by Calendar.BucketSeries. Each transaction lands in the unique span whose
// half-open range contains its PaidAt, located by binary search; transactions
// outside every span are dropped silently. The sum of all bucket totals
// equals the sum of all matched transaction amounts exactly.
func AssignBuckets(spans []Span, txs []Transaction) []PeriodBucket {
	buckets := make([]PeriodBucket, len(spans))
	for i, s := range spans {
		buckets[i] = PeriodBucket{
			StartPeriod:  s.Start,
			Total:        ZeroMoney,
			Transactions: []Transaction{},
		}
	}

	for _, t := range txs {
		i, ok := locate(spans, t.PaidAt)
		if !ok {
			continue
		}
		buckets[i].Total = buckets[i].Total.Add(t.Amount)
		buckets[i].Transactions = append(buckets[i].Transactions, t)
	}
	return buckets
}

// locate finds the span containing the instant. Spans are sorted by
// descending Start, so the candidate is the first span not starting after t.
func locate(spans []Span, t time.Time) (int, bool) {
	if len(spans) == 1 && spans[0].Unbounded {
		return 0, true
	}
	i := sort.Search(len(spans), func(i int) bool {
		return !spans[i].Start.After(t)
	})
	if i == len(spans) {
		return 0, false
	}
	if !spans[i].Contains(t) {
		return 0, false
	}
	return i, true
}
