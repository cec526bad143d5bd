package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"10995116277.76", 1 << 40, true},
		{"10995116277.77", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseSignedCents(t *testing.T) {
	got, err := ParseSignedCents("-12,50")
	if err != nil || got != -1250 {
		t.Fatalf("expected -1250, got %d (err=%v)", got, err)
	}
	if _, err := ParseSignedCents("1e30"); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: -1205}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":-12.05}` {
		t.Fatalf("unexpected json %s", b)
	}

	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":19.9,"b":"7,25"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1990 || v.B.Cents != 725 {
		t.Fatalf("unexpected cents a=%d b=%d", v.A.Cents, v.B.Cents)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := NewMoney(1000), NewMoney(250)
	if a.Sub(b).Cents != 750 || a.Add(b).Cents != 1250 {
		t.Fatalf("unexpected arithmetic")
	}
	if b.Sub(a).Abs().Cents != 750 {
		t.Fatalf("unexpected abs")
	}
	if a.String() != "10.00" {
		t.Fatalf("unexpected string %q", a.String())
	}
}

func TestMaxCentsLeavesRoomForLargeSums(t *testing.T) {
	const rows = 8_000_000
	if maxCents > math.MaxInt64/rows {
		t.Fatalf("summing %d rows of %d cents would overflow int64", rows, maxCents)
	}
}

func TestMoneyFloat64(t *testing.T) {
	if got := NewMoney(-12345).Float64(); got != -123.45 {
		t.Errorf("expected -123.45, got %v", got)
	}
}
