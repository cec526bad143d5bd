package format

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"saldo/internal/analytics"
	"saldo/internal/core"
)

func TestMonthLabels(t *testing.T) {
	cases := []struct {
		tag      language.Tag
		feb, dec string
	}{
		{language.BrazilianPortuguese, "Fev", "Dez"},
		{language.Italian, "Feb", "Dic"},
		{language.AmericanEnglish, "Feb", "Dec"},
		{language.Japanese, "Feb", "Dec"},
	}
	for _, tc := range cases {
		labels := MonthLabels(tc.tag)
		if labels[1] != tc.feb || labels[11] != tc.dec {
			t.Fatalf("%s: unexpected labels %v", tc.tag, labels)
		}
	}
}

func TestParseLocale(t *testing.T) {
	if ParseLocale("") != DefaultLocale || ParseLocale("not a tag!") != DefaultLocale {
		t.Fatalf("expected default locale fallback")
	}
	if ParseLocale("it-IT").String() != "it-IT" {
		t.Fatalf("unexpected tag")
	}
}

func TestCycleOptions(t *testing.T) {
	cfg, _ := core.CycleConfigFromDay(25)
	opts := CycleOptions([]core.CycleKey{{Year: 2024, Month: 1}}, cfg, language.BrazilianPortuguese)
	if len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
	if opts[0].Label != "Fev/2024" || opts[0].Range != "26/Jan – 25/Fev" {
		t.Fatalf("unexpected option %+v", opts[0])
	}
}

func TestMonthlySeries(t *testing.T) {
	var b analytics.MonthlyBuckets
	b[2].Income = core.NewMoney(500)
	b[2].Expense = core.NewMoney(200)
	s := MonthlySeries(b, language.BrazilianPortuguese)
	if len(s.Labels) != 12 || len(s.Datasets) != 2 {
		t.Fatalf("unexpected series shape %+v", s)
	}
	if s.Datasets[0].Data[2].Cents != 500 || s.Datasets[1].Data[2].Cents != 200 {
		t.Fatalf("unexpected data %+v", s.Datasets)
	}

	bal := BalanceSeries(analytics.ProjectRunningBalance(b), language.English)
	if bal.Datasets[0].Data[11].Cents != 300 {
		t.Fatalf("unexpected balance %v", bal.Datasets[0].Data)
	}
}

func TestCategorySeriesAndPalette(t *testing.T) {
	s := CategorySeries([]analytics.CategoryAmount{{Name: "food", Amount: core.NewMoney(10)}, {Name: "rent", Amount: core.NewMoney(5)}})
	if s.Labels[0] != "food" || len(s.Datasets[0].Colors) != 2 {
		t.Fatalf("unexpected series %+v", s)
	}
	p := Palette(4)
	if p[0] != "hsl(0, 70%, 50%)" || p[1] != "hsl(90, 70%, 50%)" {
		t.Fatalf("unexpected palette %v", p)
	}
	if len(Palette(0)) != 0 {
		t.Fatalf("expected empty palette")
	}
}

func TestDailySeries(t *testing.T) {
	s := DailySeries("A", core.NewDate(2024, 1, 30), make([]core.Money, 3))
	if strings.Join(s.Labels, ",") != "30,31,01" {
		t.Fatalf("unexpected labels %v", s.Labels)
	}
}

func TestCurrency(t *testing.T) {
	got := Currency(core.NewMoney(123450), language.BrazilianPortuguese)
	if !strings.Contains(got, "R$") || !strings.Contains(got, "1.234,50") {
		t.Fatalf("unexpected pt-BR currency %q", got)
	}
	neg := Currency(core.NewMoney(-500), language.BrazilianPortuguese)
	if !strings.HasPrefix(neg, "-") || !strings.Contains(neg, "5,00") {
		t.Fatalf("unexpected negative currency %q", neg)
	}
}
