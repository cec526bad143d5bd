package format

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"saldo/internal/analytics"
	"saldo/internal/core"
)

// Currency formats m for tag, e.g. "R$ 1.234,50" for pt-BR.
// The currency is taken from the tag's region; BRL when it has none.
func Currency(m core.Money, tag language.Tag) string {
	unit, conf := currency.FromTag(tag)
	if conf == language.No {
		unit = currency.BRL
	}
	p := message.NewPrinter(tag)
	sign := ""
	if m.Cents < 0 {
		sign = "-"
	}
	return sign + p.Sprint(currency.Symbol(unit)) + " " +
		p.Sprint(number.Decimal(m.Abs().Float64(), number.Scale(2)))
}

// FormattedSummary carries display strings for a period summary.
type FormattedSummary struct {
	Income     string            `json:"income"`
	Expense    string            `json:"expense"`
	Net        string            `json:"net"`
	ByCategory map[string]string `json:"by_category"`
}

// Summary formats every amount of s for tag.
func Summary(s analytics.PeriodSummary, tag language.Tag) FormattedSummary {
	out := FormattedSummary{
		Income:     Currency(s.Income, tag),
		Expense:    Currency(s.Expense, tag),
		Net:        Currency(s.Net, tag),
		ByCategory: make(map[string]string, len(s.ByCategory)),
	}
	for k, v := range s.ByCategory {
		out.ByCategory[k] = Currency(v, tag)
	}
	return out
}
