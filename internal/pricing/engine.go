package pricing

import "github.com/shopspring/decimal"

// Item describes a line item used for pricing calculation. UnitPrice is the
// effective price, discount price already resolved when one applies.
type Item struct {
	ProjectID int64
	Title     string
	Qty       int
	UnitPrice decimal.Decimal
}

// Quote aggregates computed order totals before tax decomposition.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal returns the extended price for one item.
func LineTotal(it Item) decimal.Decimal {
	if it.Qty <= 0 {
		return decimal.Zero
	}
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))
}

// Subtotal sums line totals across items. Non-positive quantities are skipped.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it))
	}
	return total
}

// ComputeQuote applies a discount to the item subtotal. The final total is
// clamped at zero so an oversized fixed discount can never produce a
// negative charge.
func ComputeQuote(items []Item, discount decimal.Decimal) Quote {
	subtotal := Subtotal(items)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Quote{Subtotal: subtotal, Discount: discount, Total: total}
}

// Breakdown decomposes a tax-inclusive order total into its settlement
// components. The commission base excludes tax.
type Breakdown struct {
	Total            decimal.Decimal
	NetAmount        decimal.Decimal
	TaxAmount        decimal.Decimal
	CommissionAmount decimal.Decimal
	SellerAmount     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Split decomposes total using the pinned commission rate and the tax rate,
// both expressed as percentages. Totals are tax inclusive: the net amount is
// total divided by (1 + tax/100), tax is the remainder, commission is taken
// from the net, and the seller receives what is left.
//
// Full precision is kept throughout; rounding happens only at presentation.
func Split(total, commissionRatePercent, taxRatePercent decimal.Decimal) Breakdown {
	if total.IsNegative() {
		total = decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Add(taxRatePercent.Div(hundred))
	net := total.Div(divisor)
	tax := total.Sub(net)
	commission := net.Mul(commissionRatePercent).Div(hundred)
	seller := net.Sub(commission)
	return Breakdown{
		Total:            total,
		NetAmount:        net,
		TaxAmount:        tax,
		CommissionAmount: commission,
		SellerAmount:     seller,
	}
}

// Round2 rounds a component for API presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
