package order

import (
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/pricing"
	"github.com/kodpazar/backend-api/internal/repo"
)

// PriceBreakdown is the settlement view of an order total, rounded for
// presentation.
type PriceBreakdown struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AmountWithoutTax decimal.Decimal `json:"amount_without_tax"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	SellerAmount     decimal.Decimal `json:"seller_amount"`
}

// BreakdownFor decomposes an order using the rate pinned at creation.
// Orders created before rates were pinned fall back to the platform rate.
func BreakdownFor(o repo.Order, fallbackRate, taxRate decimal.Decimal) PriceBreakdown {
	rate := fallbackRate
	if o.CommissionRate.Valid {
		rate = o.CommissionRate.Decimal
	}
	b := pricing.Split(o.TotalAmount, rate, taxRate)
	return PriceBreakdown{
		TotalAmount:      pricing.Round2(b.Total),
		AmountWithoutTax: pricing.Round2(b.NetAmount),
		TaxAmount:        pricing.Round2(b.TaxAmount),
		CommissionRate:   rate,
		CommissionAmount: pricing.Round2(b.CommissionAmount),
		SellerAmount:     pricing.Round2(b.SellerAmount),
	}
}
