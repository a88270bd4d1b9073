package order

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/repo"
)

func TestBreakdownForPinnedRate(t *testing.T) {
	o := repo.Order{
		TotalAmount:    decimal.NewFromInt(920),
		CommissionRate: decimal.NullDecimal{Decimal: decimal.NewFromInt(15), Valid: true},
	}
	b := BreakdownFor(o, decimal.NewFromInt(25), decimal.NewFromInt(18))

	want := map[string]decimal.Decimal{
		"total":      decimal.RequireFromString("920"),
		"net":        decimal.RequireFromString("779.66"),
		"tax":        decimal.RequireFromString("140.34"),
		"rate":       decimal.RequireFromString("15"),
		"commission": decimal.RequireFromString("116.95"),
		"seller":     decimal.RequireFromString("662.71"),
	}
	got := map[string]decimal.Decimal{
		"total":      b.TotalAmount,
		"net":        b.AmountWithoutTax,
		"tax":        b.TaxAmount,
		"rate":       b.CommissionRate,
		"commission": b.CommissionAmount,
		"seller":     b.SellerAmount,
	}
	for k, w := range want {
		if !got[k].Equal(w) {
			t.Fatalf("%s = %s, want %s", k, got[k], w)
		}
	}
}

func TestBreakdownForFallbackRate(t *testing.T) {
	o := repo.Order{TotalAmount: decimal.NewFromInt(118)}
	b := BreakdownFor(o, decimal.NewFromInt(10), decimal.NewFromInt(18))

	if !b.AmountWithoutTax.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("net = %s, want 100", b.AmountWithoutTax)
	}
	if !b.CommissionRate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("rate = %s, want fallback 10", b.CommissionRate)
	}
	if !b.CommissionAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("commission = %s, want 10", b.CommissionAmount)
	}
	if !b.SellerAmount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("seller = %s, want 90", b.SellerAmount)
	}
	if !b.TaxAmount.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("tax = %s, want 18", b.TaxAmount)
	}
}
