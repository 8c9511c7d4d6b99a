package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:     "$0.00",
		5:     "$0.05",
		2500:  "$25.00",
		12345: "$123.45",
		-300:  "-$3.00",
	}
	for cents, want := range cases {
		if got := Format(cents); got != want {
			t.Fatalf("Format(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestParseCents(t *testing.T) {
	cases := map[string]int64{
		"25":     2500,
		"25.00":  2500,
		"20.5":   2050,
		" 0.01 ": 1,
	}
	for in, want := range cases {
		got, err := ParseCents(in)
		if err != nil || got != want {
			t.Fatalf("ParseCents(%q) = %d, %v; want %d", in, got, err, want)
		}
	}

	if _, err := ParseCents("1.005"); err == nil {
		t.Fatal("expected sub-cent amount to fail")
	}
	if _, err := ParseCents("abc"); err == nil {
		t.Fatal("expected invalid amount to fail")
	}
}

func TestFromCentsRoundTrip(t *testing.T) {
	d := FromCents(4999)
	if !d.Equal(decimal.RequireFromString("49.99")) {
		t.Fatalf("unexpected decimal %s", d)
	}
	cents, err := ToCents(d)
	if err != nil || cents != 4999 {
		t.Fatalf("ToCents = %d, %v", cents, err)
	}
}
