package analytics

import "saldo/internal/core"

// Bucket holds one cycle-month of totals.
type Bucket struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

// Net is income minus expense.
func (b Bucket) Net() core.Money {
	return b.Income.Sub(b.Expense)
}

// MonthlyBuckets is indexed by 0-based cycle month.
type MonthlyBuckets [12]Bucket

// Totals sums all buckets.
func (m MonthlyBuckets) Totals() Bucket {
	var total Bucket
	for _, b := range m {
		total.Income = total.Income.Add(b.Income)
		total.Expense = total.Expense.Add(b.Expense)
	}
	return total
}

// AggregateMonthly sums income and expense per cycle month of year.
// Transactions that resolve to another year are skipped.
func AggregateMonthly(txs []core.Transaction, year int, cfg core.CycleConfig) MonthlyBuckets {
	var buckets MonthlyBuckets
	for _, t := range txs {
		key, ok := resolveTransaction(t, cfg)
		if !ok || key.Year != year {
			continue
		}
		b := &buckets[key.Month]
		switch t.Type {
		case core.Income:
			b.Income = b.Income.Add(t.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(t.Amount)
		}
	}
	return buckets
}
