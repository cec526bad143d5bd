package analytics

import "saldo/internal/core"

// ProjectRunningBalance returns the cumulative net position after each month.
// The balance starts at zero every year; earlier years are not carried over.
func ProjectRunningBalance(b MonthlyBuckets) [12]core.Money {
	var out [12]core.Money
	var running core.Money
	for i, bucket := range b {
		running = running.Add(bucket.Net())
		out[i] = running
	}
	return out
}

// ProjectDailyBalance returns the cumulative net for each day of the cycle,
// starting at zero on the day before CycleBounds' start.
func ProjectDailyBalance(txs []core.Transaction, key core.CycleKey, cfg core.CycleConfig) []core.Money {
	start, end := CycleBounds(key, cfg)
	days := int(end.Sub(start.Time).Hours()/24) + 1
	if days <= 0 {
		return []core.Money{}
	}

	perDay := make([]core.Money, days)
	for _, t := range txs {
		if t.Date.IsZero() || t.Date.Before(start.Time) || t.Date.After(end.Time) {
			continue
		}
		i := int(t.Date.Sub(start.Time).Hours() / 24)
		switch t.Type {
		case core.Income:
			perDay[i] = perDay[i].Add(t.Amount)
		case core.Expense:
			perDay[i] = perDay[i].Sub(t.Amount)
		}
	}

	out := make([]core.Money, days)
	var running core.Money
	for i, v := range perDay {
		running = running.Add(v)
		out[i] = running
	}
	return out
}
