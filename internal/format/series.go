package format

import (
	"fmt"

	"golang.org/x/text/language"

	"saldo/internal/analytics"
	"saldo/internal/core"
)

// Dataset is one line or bar group of a chart.
type Dataset struct {
	Label  string       `json:"label"`
	Data   []core.Money `json:"data"`
	Colors []string     `json:"colors,omitempty"`
}

// Series is a chart-ready payload: labels on the x axis and one or more datasets.
type Series struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

const (
	incomeColor  = "#22c55e"
	expenseColor = "#ef4444"
	balanceColor = "#3b82f6"
)

func monthAxis(tag language.Tag) []string {
	labels := MonthLabels(tag)
	return labels[:]
}

// MonthlySeries builds the income/expense bar chart for one year.
func MonthlySeries(b analytics.MonthlyBuckets, tag language.Tag) Series {
	income := make([]core.Money, 12)
	expense := make([]core.Money, 12)
	for i, bucket := range b {
		income[i] = bucket.Income
		expense[i] = bucket.Expense
	}
	return Series{
		Labels: monthAxis(tag),
		Datasets: []Dataset{
			{Label: "income", Data: income, Colors: []string{incomeColor}},
			{Label: "expense", Data: expense, Colors: []string{expenseColor}},
		},
	}
}

// BalanceSeries builds the running balance line for one year.
func BalanceSeries(balance [12]core.Money, tag language.Tag) Series {
	return Series{
		Labels:   monthAxis(tag),
		Datasets: []Dataset{{Label: "balance", Data: balance[:], Colors: []string{balanceColor}}},
	}
}

// CategorySeries builds the expense-by-category doughnut.
func CategorySeries(cats []analytics.CategoryAmount) Series {
	labels := make([]string, len(cats))
	data := make([]core.Money, len(cats))
	for i, c := range cats {
		labels[i] = c.Name
		data[i] = c.Amount
	}
	return Series{
		Labels:   labels,
		Datasets: []Dataset{{Label: "expense", Data: data, Colors: Palette(len(cats))}},
	}
}

// DailySeries builds the cumulative balance line for one cycle, labelled
// with the day of month.
func DailySeries(label string, start core.Date, daily []core.Money) Series {
	labels := make([]string, len(daily))
	for i := range daily {
		labels[i] = fmt.Sprintf("%02d", start.AddDate(0, 0, i).Day())
	}
	return Series{
		Labels:   labels,
		Datasets: []Dataset{{Label: label, Data: daily, Colors: []string{balanceColor}}},
	}
}

// Palette spreads n hues evenly around the color wheel.
func Palette(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("hsl(%d, 70%%, 50%%)", i*360/n)
	}
	return out
}
