package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-10", NewDate(2024, 1, 10), true},
		{"2023-10-26T14:00:00.000Z", NewDate(2023, 10, 26), true},
		{" 2024-12-31 ", NewDate(2024, 12, 31), true},
		{"2024-02-30", Date{}, false},
		{"10/01/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestTransactionJSON(t *testing.T) {
	var tx Transaction
	body := `{"id":"x","date":"2024-02-28T10:00:00Z","title":"Padaria","amount":12.5,"type":"expense"}`
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.Date.Day() != 28 || tx.Amount.Cents != 1250 || tx.Type != Expense {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"date":"2024-02-28"`) || !strings.Contains(string(out), `"amount":12.50`) {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 100}, Type: Income}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Date: Date{Time: time.Time{}}, Amount: Money{Cents: 1}, Type: Income}, ErrInvalidDate},
		{Transaction{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}, Type: Income}, ErrInvalidAmount},
		{Transaction{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Type: "transfer"}, ErrInvalidType},
		{Transaction{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Type: Expense, Title: strings.Repeat("a", 201)}, ErrTitleTooLong},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestParseTxType(t *testing.T) {
	for in, want := range map[string]TxType{"income": Income, "Entrada": Income, "expense": Expense, "despesa": Expense} {
		got, err := ParseTxType(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseTxType("transfer"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCategoryOrDefault(t *testing.T) {
	if got := (Transaction{Category: "  "}).CategoryOrDefault(); got != Uncategorized {
		t.Fatalf("expected %q, got %q", Uncategorized, got)
	}
	if got := (Transaction{Category: " food "}).CategoryOrDefault(); got != "food" {
		t.Fatalf("expected food, got %q", got)
	}
}
