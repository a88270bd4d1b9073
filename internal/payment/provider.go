package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest captures the information required to charge an order with a provider.
type ChargeRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
}

// ChargeResult represents the minimal information returned by a provider after a charge.
type ChargeResult struct {
	Provider string
	TxnID    string
	Status   string
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
