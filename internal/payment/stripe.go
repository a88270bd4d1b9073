package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stripe implements the Provider interface for card payments.
type Stripe struct {
	SecretKey string
}

// Charge issues a deterministic charge reference without performing a
// network call. The real implementation should call the Stripe API; tests
// and local environments drive the rest of the flow off this synthetic id.
func (s Stripe) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return ChargeResult{}, errors.New("order number is required")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return ChargeResult{}, errors.New("amount must be positive")
	}
	return ChargeResult{
		Provider: "stripe",
		TxnID:    fmt.Sprintf("ch_%s", req.OrderNumber),
		Status:   "succeeded",
	}, nil
}
