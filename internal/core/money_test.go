package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "1500", want: "1500"},
		{name: "decimal", input: "1500.50", want: "1500.5"},
		{name: "thousands separator", input: "1,500", want: "1500"},
		{name: "indian grouping", input: "1,50,000", want: "150000"},
		{name: "rupee sign", input: "₹1,500.00", want: "1500"},
		{name: "rs with slash dash", input: "Rs. 1500/-", want: "1500"},
		{name: "inr suffix", input: "1500 INR", want: "1500"},
		{name: "accounting negative", input: "(200)", want: "-200"},
		{name: "minus sign", input: "-75.25", want: "-75.25"},
		{name: "leading point", input: ".5", want: "0.5"},
		{name: "apostrophe", input: "'1500", want: "1500"},
		{name: "empty", input: "", wantErr: true},
		{name: "words", input: "fifteen hundred", wantErr: true},
		{name: "two points", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500", "1500.00"},
		{"1500.5", "1500.50"},
		{"0.125", "0.13"},
		{"-20", "-20.00"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSumAmounts(t *testing.T) {
	items := []Payment{
		{Amount: decimal.RequireFromString("1500")},
		{Amount: decimal.RequireFromString("0.10")},
		{Amount: decimal.RequireFromString("0.20")},
	}
	got := sumAmounts(items, func(p Payment) decimal.Decimal { return p.Amount })
	if !got.Equal(decimal.RequireFromString("1500.30")) {
		t.Errorf("sumAmounts = %s, want 1500.30", got)
	}
}
