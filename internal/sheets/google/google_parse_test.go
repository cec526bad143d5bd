package google

import (
	"testing"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"date", "title", "amount", "type", "category", "id"},
		{"2024-01-05", "Salário", 3000.0, "income", "", "a1"},
		{},
		{"2024-01-06", "Mercado", 120.5, "expense", "alimentação", "b2"},
		{"2024-01-07", "no id", 10.0, "expense"},
		{"bad", "Broken", 1.0, "expense", "", "c3"},
	}

	rows := parseRows(values)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows with ids, got %d", len(rows))
	}

	tests := []struct {
		line    int
		id      string
		cents   int64
		wantErr bool
	}{
		{line: 1, id: "id", wantErr: true},
		{line: 2, id: "a1", cents: 300000},
		{line: 4, id: "b2", cents: 12050},
		{line: 6, id: "c3", wantErr: true},
	}
	for i, tt := range tests {
		r := rows[i]
		if r.Line != tt.line || r.ID != tt.id {
			t.Errorf("row %d: expected line %d id %s, got line %d id %s", i, tt.line, tt.id, r.Line, r.ID)
		}
		if (r.Err != nil) != tt.wantErr {
			t.Errorf("row %d: wantErr %v, got %v", i, tt.wantErr, r.Err)
			continue
		}
		if !tt.wantErr && r.Amount.Cents != tt.cents {
			t.Errorf("row %d: expected %d cents, got %d", i, tt.cents, r.Amount.Cents)
		}
	}
	if rows[2].Category != "alimentação" || rows[2].Title != "Mercado" {
		t.Errorf("unexpected row: %+v", rows[2].Transaction)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{1234567.5, "x", nil, true})
	want := []string{"1234567.5", "x", "", "true"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
