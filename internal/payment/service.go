package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Service settles order payments against a configured gateway.
type Service struct {
	Q               *repo.Queries
	Pool            *pgxpool.Pool
	Providers       map[string]Provider
	DefaultProvider string
	Events          *events.Bus
	Log             zerolog.Logger
}

// Process charges an unpaid order and records the settlement. The unpaid
// guard lives in the UPDATE itself, so a concurrent retry cannot settle the
// same order twice.
func (s *Service) Process(ctx context.Context, userID, orderID int64, providerName string) (repo.Order, ChargeResult, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return repo.Order{}, ChargeResult{}, errors.New("payment service not configured")
	}
	order, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, ChargeResult{}, common.NotFoundError("order not found", err)
		}
		return repo.Order{}, ChargeResult{}, err
	}
	if order.UserID != userID {
		return repo.Order{}, ChargeResult{}, common.NotFoundError("order not found", nil)
	}
	if order.PaymentStatus != repo.PaymentStatusUnpaid {
		return repo.Order{}, ChargeResult{}, common.ConflictError("INVALID_STATE", "order is already paid", nil)
	}
	if order.OrderStatus == repo.OrderStatusCanceled {
		return repo.Order{}, ChargeResult{}, common.ConflictError("INVALID_STATE", "order is canceled", nil)
	}

	name := strings.TrimSpace(strings.ToLower(providerName))
	if name == "" {
		name = s.DefaultProvider
	}
	provider, ok := s.Providers[name]
	if !ok {
		return repo.Order{}, ChargeResult{}, common.ValidationError("unknown payment provider", nil)
	}

	charge, err := provider.Charge(ctx, ChargeRequest{
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
	})
	if err != nil {
		s.countResult(name, "charge_failed")
		return repo.Order{}, ChargeResult{}, common.NewAppError("PAYMENT_FAILED", "payment was declined", 402, err)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repo.Order{}, ChargeResult{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	rows, err := qtx.MarkOrderPaid(ctx, order.ID)
	if err != nil {
		return repo.Order{}, ChargeResult{}, err
	}
	if rows == 0 {
		s.countResult(name, "conflict")
		return repo.Order{}, ChargeResult{}, common.ConflictError("INVALID_STATE", "order is already paid", nil)
	}
	if _, err := qtx.CompleteOrderTransaction(ctx, repo.CompleteOrderTransactionParams{
		OrderID:       order.ID,
		Type:          repo.TxnTypePurchase,
		ProviderTxnID: pgtype.Text{String: charge.TxnID, Valid: true},
	}); err != nil {
		return repo.Order{}, ChargeResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return repo.Order{}, ChargeResult{}, err
	}

	s.countResult(name, "paid")
	updated, err := s.Q.GetOrderByID(ctx, order.ID)
	if err != nil {
		updated = order
	}
	if s.Events != nil {
		if err := s.Events.Emit(ctx, events.TopicOrderPaid, map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"provider":     charge.Provider,
			"txn_id":       charge.TxnID,
		}); err != nil {
			s.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("emit order.paid")
		}
	}
	return updated, charge, nil
}

// Status returns the order's payment state with its transaction history.
func (s *Service) Status(ctx context.Context, userID, orderID int64) (repo.Order, []repo.Transaction, error) {
	order, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, nil, common.NotFoundError("order not found", err)
		}
		return repo.Order{}, nil, err
	}
	if order.UserID != userID {
		return repo.Order{}, nil, common.NotFoundError("order not found", nil)
	}
	txns, err := s.Q.ListTransactionsByOrder(ctx, order.ID)
	if err != nil {
		return repo.Order{}, nil, err
	}
	return order, txns, nil
}

func (s *Service) countResult(provider, result string) {
	if obs.PaymentProcessTotal != nil {
		obs.PaymentProcessTotal.WithLabelValues(provider, result).Inc()
	}
}
