package core

import (
	"errors"
	"strings"
	"time"
)

const (
	PeriodDay   PeriodUnit = "DAY"
	PeriodWeek  PeriodUnit = "WEEK"
	PeriodMonth PeriodUnit = "MONTH"
	PeriodYear  PeriodUnit = "YEAR"
	PeriodAll   PeriodUnit = "ALL"
)

// PeriodUnit is the granularity over which a wallet's spending is totalled.
type PeriodUnit string

var (
	ErrInvalidPeriodUnit = errors.New("invalid period unit")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidLimit      = errors.New("invalid limit")
)

// ParsePeriodUnit validates a wire value against the closed unit set.
func ParsePeriodUnit(s string) (PeriodUnit, error) {
	switch u := PeriodUnit(strings.ToUpper(strings.TrimSpace(s))); u {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return u, nil
	default:
		return "", ErrInvalidPeriodUnit
	}
}

// LoadTimezone resolves an IANA timezone identifier, mapping any failure to
// ErrInvalidTimezone so callers can report it as a client error.
func LoadTimezone(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// Span is a half-open aggregation window [Start, End). An unbounded span
// covers all of recorded history; its Start is only a reporting label.
type Span struct {
	Start     time.Time
	End       time.Time
	Unbounded bool
}

// Contains reports whether the instant falls inside the span.
func (s Span) Contains(t time.Time) bool {
	if s.Unbounded {
		return true
	}
	return !t.Before(s.Start) && t.Before(s.End)
}

// Calendar computes period boundaries. It is a pure value: the reference
// instant is always passed in, never read from the system clock, so boundary
// math stays deterministic and testable.
type Calendar struct {
	// WeekStart is the first day of a WEEK period. The original data has no
	// evidence either way, so it is configuration; the default matches
	// Postgres DATE_TRUNC, which starts weeks on Monday.
	WeekStart time.Weekday
}

// DefaultCalendar starts weeks on Monday.
func DefaultCalendar() Calendar {
	return Calendar{WeekStart: time.Monday}
}

// CurrentPeriodStart truncates now, interpreted in loc, to the start of its
// unit. For PeriodAll the span is unbounded and its reported Start is now.
func (c Calendar) CurrentPeriodStart(unit PeriodUnit, loc *time.Location, now time.Time) (Span, error) {
	local := now.In(loc)
	switch unit {
	case PeriodDay:
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return Span{Start: start, End: start.AddDate(0, 0, 1)}, nil
	case PeriodWeek:
		back := (int(local.Weekday()) - int(c.WeekStart) + 7) % 7
		start := time.Date(local.Year(), local.Month(), local.Day()-back, 0, 0, 0, 0, loc)
		return Span{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case PeriodMonth:
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return Span{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case PeriodYear:
		start := time.Date(local.Year(), 1, 1, 0, 0, 0, 0, loc)
		return Span{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case PeriodAll:
		return Span{Start: now, Unbounded: true}, nil
	default:
		return Span{}, ErrInvalidPeriodUnit
	}
}

// BucketSeries produces limit consecutive unit-width spans, most recent
// first. The newest span starts offset units before the current period; each
// predecessor steps back one more unit. Consecutive spans share a boundary,
// so the series never gaps or overlaps. PeriodAll yields exactly one
// unbounded span regardless of limit and offset.
func (c Calendar) BucketSeries(unit PeriodUnit, loc *time.Location, now time.Time, limit, offset int) ([]Span, error) {
	if _, err := ParsePeriodUnit(string(unit)); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if offset < 0 {
		return nil, ErrInvalidLimit
	}
	if unit == PeriodAll {
		return []Span{{Start: now, Unbounded: true}}, nil
	}

	current, err := c.CurrentPeriodStart(unit, loc, now)
	if err != nil {
		return nil, err
	}

	spans := make([]Span, limit)
	start := c.step(unit, loc, current.Start, -offset)
	for i := range spans {
		spans[i] = Span{Start: start, End: c.step(unit, loc, start, 1)}
		start = c.step(unit, loc, start, -1)
	}
	return spans, nil
}

// step moves a period start by n units, re-anchoring at midnight in loc so
// DST transitions cannot drift the boundary.
func (c Calendar) step(unit PeriodUnit, loc *time.Location, start time.Time, n int) time.Time {
	local := start.In(loc)
	y, m, d := local.Year(), local.Month(), local.Day()
	switch unit {
	case PeriodDay:
		return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
	case PeriodWeek:
		return time.Date(y, m, d+7*n, 0, 0, 0, 0, loc)
	case PeriodMonth:
		return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		return time.Date(y+n, 1, 1, 0, 0, 0, 0, loc)
	default:
		return start
	}
}
