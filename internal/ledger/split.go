package ledger

import "github.com/shopspring/decimal"

// DonationSplit is the division of a settled donation between the platform
// and the project owner.
type DonationSplit struct {
	Platform decimal.Decimal
	Owner    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// SplitDonation divides amount by the platform cut percentage. The owner
// share is the exact remainder, so the two parts always sum to amount.
func SplitDonation(amount, platformCutPercent decimal.Decimal) DonationSplit {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	platform := amount.Mul(platformCutPercent).Div(hundred)
	return DonationSplit{
		Platform: platform,
		Owner:    amount.Sub(platform),
	}
}
