package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetActiveCouponByCode(ctx context.Context, code string) (repo.Coupon, error)
	GetActiveIncentiveCoupon(ctx context.Context, arg repo.GetActiveIncentiveCouponParams) (repo.Coupon, error)
	CreateCoupon(ctx context.Context, arg repo.CreateCouponParams) (repo.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) error
	ListCouponsByUser(ctx context.Context, userID int64) ([]repo.Coupon, error)
	CountOrdersWithCoupon(ctx context.Context, arg repo.CountOrdersWithCouponParams) (int64, error)
	TotalRecognizedDonations(ctx context.Context, arg repo.TotalRecognizedDonationsParams) (decimal.Decimal, error)
}

// PreviewResult describes the outcome of evaluating a coupon without mutating state.
type PreviewResult struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

// Service encapsulates coupon evaluation and incentive issuance.
type Service struct {
	Q      Querier
	Policy IncentivePolicy
	Now    func() time.Time
	Log    zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Preview performs a dry-run evaluation for the given subtotal and scope.
func (s *Service) Preview(ctx context.Context, code string, scope Scope, subtotal decimal.Decimal) (PreviewResult, error) {
	if s == nil || s.Q == nil {
		return PreviewResult{}, errors.New("coupon service not configured")
	}
	c, err := s.Q.GetActiveCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PreviewResult{}, ErrNotEligible
		}
		return PreviewResult{}, err
	}
	rule := RuleFromModel(c)
	if err := rule.Validate(s.now(), subtotal, scope); err != nil {
		return PreviewResult{}, err
	}
	if c.OneTimeUse {
		used, err := s.Q.CountOrdersWithCoupon(ctx, repo.CountOrdersWithCouponParams{UserID: scope.UserID, CouponID: c.ID})
		if err != nil {
			return PreviewResult{}, err
		}
		if used > 0 {
			return PreviewResult{}, ErrAlreadyUsed
		}
	}
	discount := Compute(subtotal, rule)
	return PreviewResult{
		Code:     c.Code,
		Discount: discount,
		Subtotal: subtotal,
		Total:    subtotal.Sub(discount),
	}, nil
}

// ListMine returns the caller's active coupons.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]repo.Coupon, error) {
	return s.Q.ListCouponsByUser(ctx, userID)
}

// IssueIncentive mints or upgrades the donor's thank-you coupon once a
// donation is committed at submission. An existing active coupon is
// replaced only when the new percentage is strictly greater, so a donor's
// coupon never shrinks. The caller treats any error as non-fatal; the
// donation itself has already been recorded.
func (s *Service) IssueIncentive(ctx context.Context, projectID, donorID int64) (*repo.Coupon, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	total, err := s.Q.TotalRecognizedDonations(ctx, repo.TotalRecognizedDonationsParams{
		ProjectID: projectID,
		DonorID:   donorID,
	})
	if err != nil {
		return nil, err
	}
	percent := s.Policy.Percent(total)
	if percent.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}

	existing, err := s.Q.GetActiveIncentiveCoupon(ctx, repo.GetActiveIncentiveCouponParams{
		ProjectID: projectID,
		UserID:    donorID,
	})
	switch {
	case err == nil:
		if !percent.GreaterThan(existing.DiscountValue) {
			return &existing, nil
		}
		if err := s.Q.DeactivateCoupon(ctx, existing.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		// first coupon for this pair
	default:
		return nil, err
	}

	now := s.now()
	minted, err := s.Q.CreateCoupon(ctx, repo.CreateCouponParams{
		Code:          IncentiveCode(projectID, donorID, now),
		DiscountType:  repo.DiscountTypePercentage,
		DiscountValue: percent,
		UsageLimit:    pgtype.Int4{Int32: 1, Valid: true},
		OneTimeUse:    true,
		ProjectID:     pgtype.Int8{Int64: projectID, Valid: true},
		UserID:        pgtype.Int8{Int64: donorID, Valid: true},
		ExpiresAt:     pgtype.Timestamptz{Time: now.Add(s.Policy.TTL), Valid: true},
	})
	if err != nil {
		return nil, err
	}
	if obs.IncentiveCouponsIssued != nil {
		obs.IncentiveCouponsIssued.Inc()
	}
	s.Log.Info().
		Int64("project_id", projectID).
		Int64("donor_id", donorID).
		Str("code", minted.Code).
		Str("percent", percent.String()).
		Msg("incentive coupon issued")
	return &minted, nil
}
