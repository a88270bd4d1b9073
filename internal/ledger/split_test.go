package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/repo"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSplitDonation(t *testing.T) {
	split := SplitDonation(dec("100"), dec("30"))
	if !split.Platform.Equal(dec("30")) {
		t.Fatalf("platform = %s, want 30", split.Platform)
	}
	if !split.Owner.Equal(dec("70")) {
		t.Fatalf("owner = %s, want 70", split.Owner)
	}
}

func TestSplitDonationConservation(t *testing.T) {
	for _, raw := range []string{"0.01", "99.99", "1234.56", "1000000"} {
		amount := dec(raw)
		split := SplitDonation(amount, dec("30"))
		if !split.Platform.Add(split.Owner).Equal(amount) {
			t.Fatalf("platform+owner != amount for %s: %s + %s", raw, split.Platform, split.Owner)
		}
	}
}

func TestSplitDonationNegativeClamped(t *testing.T) {
	split := SplitDonation(dec("-50"), dec("30"))
	if !split.Platform.Equal(decimal.Zero) || !split.Owner.Equal(decimal.Zero) {
		t.Fatalf("negative amount must settle to zero, got %+v", split)
	}
}

type captureQuerier struct {
	credits  []repo.CreditUserBalanceParams
	received []repo.AddProjectDonationReceivedParams
}

func (c *captureQuerier) CreditUserBalance(_ context.Context, arg repo.CreditUserBalanceParams) error {
	c.credits = append(c.credits, arg)
	return nil
}

func (c *captureQuerier) AddProjectDonationReceived(_ context.Context, arg repo.AddProjectDonationReceivedParams) error {
	c.received = append(c.received, arg)
	return nil
}

func TestSettleDonation(t *testing.T) {
	q := &captureQuerier{}
	svc := &Service{PlatformAccountID: 99, PlatformCutPercent: dec("30")}
	split, err := svc.SettleDonation(context.Background(), q, 3, 7, dec("200"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !split.Platform.Equal(dec("60")) || !split.Owner.Equal(dec("140")) {
		t.Fatalf("split = %+v", split)
	}
	if len(q.credits) != 2 {
		t.Fatalf("expected 2 credits, got %d", len(q.credits))
	}
	if q.credits[0].ID != 99 || !q.credits[0].Amount.Equal(dec("60")) {
		t.Fatalf("platform credit = %+v", q.credits[0])
	}
	if q.credits[1].ID != 7 || !q.credits[1].Amount.Equal(dec("140")) {
		t.Fatalf("owner credit = %+v", q.credits[1])
	}
	if len(q.received) != 1 || q.received[0].ID != 3 || !q.received[0].Amount.Equal(dec("200")) {
		t.Fatalf("donation_received bump = %+v", q.received)
	}
}

func TestSettleDonationRequiresPlatformAccount(t *testing.T) {
	svc := &Service{PlatformCutPercent: dec("30")}
	_, err := svc.SettleDonation(context.Background(), &captureQuerier{}, 3, 7, dec("100"))
	if !errors.Is(err, ErrNoPlatformAccount) {
		t.Fatalf("err = %v, want ErrNoPlatformAccount", err)
	}
}
