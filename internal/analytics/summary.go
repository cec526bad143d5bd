package analytics

import (
	"sort"

	"saldo/internal/core"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// PeriodSummary is the headline figures for one period.
type PeriodSummary struct {
	Income     core.Money            `json:"income"`
	Expense    core.Money            `json:"expense"`
	Net        core.Money            `json:"net"`
	ByCategory map[string]core.Money `json:"by_category"`
}

// SummarizePeriod totals a pre-filtered set of transactions. Only expenses
// contribute to the category breakdown; blank categories are counted under
// core.Uncategorized.
func SummarizePeriod(txs []core.Transaction) PeriodSummary {
	s := PeriodSummary{ByCategory: make(map[string]core.Money)}
	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		switch t.Type {
		case core.Income:
			s.Income = s.Income.Add(t.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(t.Amount)
			name := t.CategoryOrDefault()
			s.ByCategory[name] = s.ByCategory[name].Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// Categories returns the breakdown ordered by amount descending, then name.
func (s PeriodSummary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.ByCategory))
	for name, amount := range s.ByCategory {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
