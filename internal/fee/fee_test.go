package fee

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		percent string
		flat    string
		want    string
	}{
		{"percent plus flat", "100", "2", "1", "3"},
		{"no fee configured", "250.50", "0", "0", "0"},
		{"flat only", "10", "0", "0.75", "0.75"},
		{"rounds half up", "0.25", "2", "0", "0.01"},
		{"rounds down below half", "0.2", "2", "0", "0"},
		{"fractional percent", "1234.56", "1.5", "0", "18.52"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(d(tc.amount), d(tc.percent), d(tc.flat))
			if !got.Equal(d(tc.want)) {
				t.Fatalf("Calculate(%s, %s, %s) = %s, want %s", tc.amount, tc.percent, tc.flat, got, tc.want)
			}
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := (Policy{PercentRate: d("-1")}).Validate(); err != ErrNegativeRate {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}
	p := Policy{PercentRate: d("2"), FlatRate: d("1")}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Calculate(d("100")); !got.Equal(d("3")) {
		t.Fatalf("expected 3, got %s", got)
	}
}
