// Package analytics turns a transaction snapshot into billing-cycle aware
// reports: cycle resolution, filtering, monthly buckets, running balances,
// period summaries and the list of cycles that hold data.
//
// Every function here is pure. Callers pass a snapshot they will not mutate
// while a call is in progress; nothing is retained after return.
//
// Transactions with a zero date are excluded from every aggregation.
package analytics

import (
	"time"

	"saldo/internal/core"
)

// ResolveCycle maps a calendar date to the cycle it is billed in.
//
// With a closing day c, purchases after day c belong to the next month's
// cycle; December rolls into January of the following year.
func ResolveCycle(d core.Date, cfg core.CycleConfig) core.CycleKey {
	key := core.NewCycleKey(d.Year(), time.Month(d.Month()))
	if cfg.IsCalendarMonth() {
		return key
	}
	if d.Day() > cfg.Day() {
		return key.Next()
	}
	return key
}

// resolveTransaction reports ok=false for transactions that cannot be placed.
func resolveTransaction(t core.Transaction, cfg core.CycleConfig) (core.CycleKey, bool) {
	if t.Date.IsZero() {
		return core.CycleKey{}, false
	}
	return ResolveCycle(t.Date, cfg), true
}

// CycleBounds returns the first and last calendar day covered by key.
func CycleBounds(key core.CycleKey, cfg core.CycleConfig) (start, end core.Date) {
	month := key.CalendarMonth()
	if cfg.IsCalendarMonth() {
		start = core.NewDate(key.Year, int(month), 1)
		end = core.Date{Time: start.AddDate(0, 1, -1)}
		return start, end
	}
	c := cfg.Day()
	prev := key.Prev()
	start = core.NewDate(prev.Year, int(prev.CalendarMonth()), c+1)
	end = core.NewDate(key.Year, int(month), c)
	return start, end
}
