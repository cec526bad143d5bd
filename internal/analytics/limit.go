package analytics

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// LimitStatus reports spending against a monthly limit.
type LimitStatus struct {
	Set       bool            `json:"set"`
	Limit     core.Money      `json:"limit"`
	Spent     core.Money      `json:"spent"`
	Remaining core.Money      `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

// EvaluateLimit compares spent with limit. A zero limit means no limit is set.
// Percent is clamped to 0..100; Remaining goes negative once exceeded.
func EvaluateLimit(limit, spent core.Money) LimitStatus {
	st := LimitStatus{Limit: limit, Spent: spent, Percent: decimal.Zero}
	if limit.Cents <= 0 {
		return st
	}
	st.Set = true
	st.Remaining = limit.Sub(spent)
	st.Exceeded = spent.Cents > limit.Cents

	pct := spent.Decimal().Div(limit.Decimal()).Mul(hundred).Round(1)
	switch {
	case pct.IsNegative():
		pct = decimal.Zero
	case pct.GreaterThan(hundred):
		pct = hundred
	}
	st.Percent = pct
	return st
}
