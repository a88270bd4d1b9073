package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/repo"
)

// Querier captures the balance mutations the ledger performs. Settlement
// runs inside the caller's transaction, so the Querier is passed per call.
type Querier interface {
	CreditUserBalance(ctx context.Context, arg repo.CreditUserBalanceParams) error
	AddProjectDonationReceived(ctx context.Context, arg repo.AddProjectDonationReceivedParams) error
}

// ErrNoPlatformAccount is returned when settlement would have nowhere to
// put the platform share.
var ErrNoPlatformAccount = errors.New("ledger: platform account not configured")

// Service moves money between the platform account and user balances.
type Service struct {
	// PlatformAccountID is the explicitly configured account that absorbs
	// the platform share. There is no implicit fallback.
	PlatformAccountID  int64
	PlatformCutPercent decimal.Decimal
}

// SettleDonation credits the platform and owner shares of a settled
// donation and bumps the project's lifetime donation counter.
func (s *Service) SettleDonation(ctx context.Context, q Querier, projectID, ownerID int64, amount decimal.Decimal) (DonationSplit, error) {
	if s.PlatformAccountID == 0 {
		return DonationSplit{}, ErrNoPlatformAccount
	}
	split := SplitDonation(amount, s.PlatformCutPercent)
	if err := q.CreditUserBalance(ctx, repo.CreditUserBalanceParams{ID: s.PlatformAccountID, Amount: split.Platform}); err != nil {
		return DonationSplit{}, err
	}
	if err := q.CreditUserBalance(ctx, repo.CreditUserBalanceParams{ID: ownerID, Amount: split.Owner}); err != nil {
		return DonationSplit{}, err
	}
	if err := q.AddProjectDonationReceived(ctx, repo.AddProjectDonationReceivedParams{ID: projectID, Amount: amount}); err != nil {
		return DonationSplit{}, err
	}
	return split, nil
}
