package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Iyzico implements the Provider interface for the local card gateway.
type Iyzico struct {
	APIKey string
	Secret string
}

// Charge synthesises a deterministic payment reference in the same shape
// the gateway returns. See Stripe.Charge for the rationale.
func (i Iyzico) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return ChargeResult{}, errors.New("order number is required")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return ChargeResult{}, errors.New("amount must be positive")
	}
	return ChargeResult{
		Provider: "iyzico",
		TxnID:    fmt.Sprintf("iyz-%s", req.OrderNumber),
		Status:   "success",
	}, nil
}
