package core

import "testing"

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
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{".50", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
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

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{1234, "12.34"},
		{-50, "-0.50"},
		{8000, "80.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: 4250}
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"42.50"` {
		t.Fatalf("marshal = %s, want \"42.50\"", b)
	}
	var back Money
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Cents != m.Cents {
		t.Fatalf("round trip lost cents: %d != %d", back.Cents, m.Cents)
	}
}

func TestMoneyUnmarshalBareNumber(t *testing.T) {
	var m Money
	if err := m.UnmarshalJSON([]byte(`12.34`)); err != nil {
		t.Fatalf("unmarshal bare number: %v", err)
	}
	if m.Cents != 1234 {
		t.Fatalf("got %d cents, want 1234", m.Cents)
	}
}
