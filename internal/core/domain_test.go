package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFlowFromAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   Flow
	}{
		{"-4.50", Debit},
		{"-0.01", Debit},
		{"0", Credit},
		{"0.01", Credit},
		{"1200", Credit},
	}

	for _, tt := range tests {
		got := FlowFromAmount(decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Errorf("FlowFromAmount(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestParseFlow(t *testing.T) {
	if ParseFlow("credit") != Credit {
		t.Errorf("expected credit")
	}
	if ParseFlow("debit") != Debit {
		t.Errorf("expected debit")
	}
	if ParseFlow("") != Debit {
		t.Errorf("unknown flow must default to debit")
	}
}

func TestBudgetValidate(t *testing.T) {
	ok := Budget{Category: "Groceries", Cap: decimal.RequireFromString("700")}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid budget, got: %v", err)
	}

	zero := Budget{Category: "Groceries"}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero cap is allowed, got: %v", err)
	}

	empty := Budget{Category: "   ", Cap: decimal.RequireFromString("100")}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got: %v", err)
	}

	negative := Budget{Category: "Groceries", Cap: decimal.RequireFromString("-1")}
	if err := negative.Validate(); !errors.Is(err, ErrNegativeCap) {
		t.Fatalf("expected ErrNegativeCap, got: %v", err)
	}
}
