package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IncentivePolicy sizes the thank-you coupon minted after donation
// settlement. Every StepAmount of settled donations earns StepPercent of
// discount, capped at MaxPercent.
type IncentivePolicy struct {
	StepAmount  decimal.Decimal
	StepPercent decimal.Decimal
	MaxPercent  decimal.Decimal
	TTL         time.Duration
}

// Percent computes the coupon percentage for the donor's settled total.
// The result is monotonic in totalDonated.
func (p IncentivePolicy) Percent(totalDonated decimal.Decimal) decimal.Decimal {
	if totalDonated.LessThanOrEqual(decimal.Zero) || p.StepAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	steps := totalDonated.Div(p.StepAmount).Floor()
	percent := steps.Mul(p.StepPercent)
	if percent.GreaterThan(p.MaxPercent) {
		return p.MaxPercent
	}
	return percent
}

// IncentiveCode builds the deterministic-prefix coupon code for a
// project/donor pair. The timestamp suffix keeps reissues unique.
func IncentiveCode(projectID, userID int64, now time.Time) string {
	return fmt.Sprintf("DONATE-%d-%d-%d", projectID, userID, now.UnixMilli())
}
