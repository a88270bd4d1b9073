package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/repo"
)

var (
	// ErrNotEligible is returned when no redeemable coupon matches the code.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrCouponInactive is returned when the coupon has been deactivated.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon expiry has passed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the coupon exhausted its usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrAlreadyUsed indicates a one-time-use coupon the account has an order for.
	ErrAlreadyUsed = errors.New("coupon already used by this account")
	// ErrMinimumSpendUnmet indicates the order subtotal is below the coupon threshold.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
	// ErrWrongProject is returned when a project-scoped coupon is applied elsewhere.
	ErrWrongProject = errors.New("coupon not valid for this project")
	// ErrWrongUser is returned when a personal coupon is applied by someone else.
	ErrWrongUser = errors.New("coupon not valid for this user")
)

// Rule captures the runtime constraints of a coupon. A nil UsageLimit
// means the coupon has no global redemption cap.
type Rule struct {
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxAmount     *decimal.Decimal
	MinAmount     *decimal.Decimal
	UsageLimit    *int32
	UsedCount     int32
	OneTimeUse    bool
	ProjectID     *int64
	UserID        *int64
	IsActive      bool
	ExpiresAt     *time.Time
}

// RuleFromModel maps a stored coupon onto its evaluation rule.
func RuleFromModel(c repo.Coupon) Rule {
	r := Rule{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		UsedCount:     c.UsageCount,
		OneTimeUse:    c.OneTimeUse,
		IsActive:      c.IsActive,
	}
	if c.UsageLimit.Valid {
		v := c.UsageLimit.Int32
		r.UsageLimit = &v
	}
	if c.MaxAmount.Valid {
		v := c.MaxAmount.Decimal
		r.MaxAmount = &v
	}
	if c.MinAmount.Valid {
		v := c.MinAmount.Decimal
		r.MinAmount = &v
	}
	if c.ProjectID.Valid {
		v := c.ProjectID.Int64
		r.ProjectID = &v
	}
	if c.UserID.Valid {
		v := c.UserID.Int64
		r.UserID = &v
	}
	if c.ExpiresAt.Valid {
		v := c.ExpiresAt.Time
		r.ExpiresAt = &v
	}
	return r
}

// Scope describes the checkout context a coupon is evaluated against.
type Scope struct {
	UserID     int64
	ProjectIDs []int64
}

// Validate ensures the rule can be applied at the provided instant and subtotal.
func (r Rule) Validate(now time.Time, subtotal decimal.Decimal, scope Scope) error {
	if !r.IsActive {
		return ErrCouponInactive
	}
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return ErrCouponExpired
	}
	if r.UsageLimit != nil && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.MinAmount != nil && subtotal.LessThan(*r.MinAmount) {
		return ErrMinimumSpendUnmet
	}
	if r.UserID != nil && *r.UserID != scope.UserID {
		return ErrWrongUser
	}
	if r.ProjectID != nil && !containsProject(scope.ProjectIDs, *r.ProjectID) {
		return ErrWrongProject
	}
	return nil
}

func containsProject(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Compute determines the discount amount for the given subtotal. Percentage
// discounts are capped by MaxAmount when set; fixed discounts are not. The
// result never exceeds the subtotal.
func Compute(subtotal decimal.Decimal, r Rule) decimal.Decimal {
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	var discount decimal.Decimal
	if strings.EqualFold(r.DiscountType, repo.DiscountTypePercentage) {
		discount = subtotal.Mul(r.DiscountValue).Div(hundred)
		if r.MaxAmount != nil && discount.GreaterThan(*r.MaxAmount) {
			discount = *r.MaxAmount
		}
	} else {
		discount = r.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
