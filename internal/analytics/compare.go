package analytics

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Comparison holds Period B relative to Period A.
type Comparison struct {
	A                PeriodSummary   `json:"a"`
	B                PeriodSummary   `json:"b"`
	NetDelta         core.Money      `json:"net_delta"`
	ExpenseDelta     core.Money      `json:"expense_delta"`
	NetChangePct     decimal.Decimal `json:"net_change_pct"`
	ExpenseChangePct decimal.Decimal `json:"expense_change_pct"`
}

// ComparePeriods computes B minus A and the change relative to A.
func ComparePeriods(a, b PeriodSummary) Comparison {
	return Comparison{
		A:                a,
		B:                b,
		NetDelta:         b.Net.Sub(a.Net),
		ExpenseDelta:     b.Expense.Sub(a.Expense),
		NetChangePct:     changePct(a.Net, b.Net),
		ExpenseChangePct: changePct(a.Expense, b.Expense),
	}
}

var hundred = decimal.NewFromInt(100)

// changePct is (b-a)/|a|*100 rounded to one decimal. With a zero base the
// change is 100 when b is positive and 0 otherwise.
func changePct(a, b core.Money) decimal.Decimal {
	if a.IsZero() {
		if b.Cents > 0 {
			return hundred
		}
		return decimal.Zero
	}
	delta := b.Sub(a).Decimal()
	return delta.Div(a.Abs().Decimal()).Mul(hundred).Round(1)
}
