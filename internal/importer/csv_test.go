package importer

import (
	"errors"
	"strings"
	"testing"

	"saldo/internal/core"
)

func TestParseMinimalFormat(t *testing.T) {
	in := "date,title,amount\n2025-01-10,Padaria,12.50\n2025-01-12,Supermercado,89.90\n"
	res, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 2 || len(res.Errors) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	first := res.Transactions[0]
	if first.Title != "Padaria" || first.Amount.Cents != 1250 || first.Type != core.Expense || first.Date.String() != "2025-01-10" {
		t.Fatalf("unexpected transaction %+v", first)
	}
}

func TestParseOptionalColumnsAndSigns(t *testing.T) {
	in := strings.Join([]string{
		"Data;Descrição;Valor;Tipo;Categoria",
		"2025-02-01;Salário;5000,00;entrada;salário",
		"2025-02-03;Mercado;-120,35;;alimentação",
		"2025-02-04;Reembolso;30;;",
	}, "\n")
	res, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %+v", res)
	}
	if tx := res.Transactions[0]; tx.Type != core.Income || tx.Amount.Cents != 500000 || tx.Category != "salário" {
		t.Fatalf("unexpected income %+v", tx)
	}
	if tx := res.Transactions[1]; tx.Type != core.Expense || tx.Amount.Cents != 12035 {
		t.Fatalf("unexpected expense %+v", tx)
	}
	if tx := res.Transactions[2]; tx.Type != core.Expense {
		t.Fatalf("missing type should default to expense, got %+v", tx)
	}
}

func TestParseReportsBadRows(t *testing.T) {
	in := strings.Join([]string{
		"date,title,amount,type",
		"2025-01-10,ok,1.00,income",
		"10/01/2025,bad date,1.00,income",
		"2025-01-11,bad amount,abc,expense",
		"2025-01-12,zero,0,expense",
		"2025-01-13,bad type,5,transfer",
		"",
		"2025-01-14,ok again,2.00,expense",
	}, "\n")
	res, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(res.Transactions))
	}
	wantLines := []int{3, 4, 5, 6}
	if len(res.Errors) != len(wantLines) {
		t.Fatalf("expected %d row errors, got %+v", len(wantLines), res.Errors)
	}
	for i, line := range wantLines {
		if res.Errors[i].Line != line {
			t.Fatalf("error %d: expected line %d, got %d (%s)", i, line, res.Errors[i].Line, res.Errors[i].Reason)
		}
	}
}

func TestParseMissingColumns(t *testing.T) {
	for _, in := range []string{"", "date,amount\n2025-01-01,1"} {
		if _, err := Parse(strings.NewReader(in)); !errors.Is(err, ErrMissingColumns) {
			t.Fatalf("%q: expected ErrMissingColumns, got %v", in, err)
		}
	}
}

func TestParseRFC3339Dates(t *testing.T) {
	res, err := ParseBytes([]byte("date,title,amount\n2023-10-26T14:00:00.000Z,Cinema,30\n"))
	if err != nil || len(res.Transactions) != 1 {
		t.Fatalf("unexpected result %+v (err=%v)", res, err)
	}
	if res.Transactions[0].Date.String() != "2023-10-26" {
		t.Fatalf("unexpected date %s", res.Transactions[0].Date)
	}
}

func TestParseThousandsSeparators(t *testing.T) {
	in := strings.Join([]string{
		"data;descricao;valor",
		"2025-03-01;Aluguel;-1.234,56",
		"2025-03-02;Bonus;\"12.500,00\"",
	}, "\n")
	res, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Errors) != 0 || len(res.Transactions) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := res.Transactions[0].Amount.Cents; got != 123456 {
		t.Errorf("expected 123456 cents, got %d", got)
	}
	if got := res.Transactions[1].Amount.Cents; got != 1250000 {
		t.Errorf("expected 1250000 cents, got %d", got)
	}
}

func TestStripThousands(t *testing.T) {
	tests := map[string]string{
		"-1.234,56":    "-1234,56",
		"1,234.56":     "1234.56",
		"1.234.567,89": "1234567,89",
		"12,50":        "12,50",
		"12.50":        "12.50",
		"abc":          "abc",
	}
	for in, want := range tests {
		if got := stripThousands(in); got != want {
			t.Errorf("stripThousands(%q) = %q, want %q", in, got, want)
		}
	}
}
