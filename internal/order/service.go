package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Service owns the order lifecycle transitions that need a transaction.
type Service struct {
	Q      *repo.Queries
	Pool   *pgxpool.Pool
	Events *events.Bus
	Log    zerolog.Logger
}

// Cancel stops an order that has not completed. A paid order additionally
// gets a pending refund transaction; the money moves when an operator
// settles it.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64) (repo.Order, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return repo.Order{}, errors.New("order service not configured")
	}
	order, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, common.NotFoundError("order not found", err)
		}
		return repo.Order{}, err
	}
	if order.UserID != userID {
		return repo.Order{}, common.NotFoundError("order not found", nil)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repo.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	rows, err := qtx.CancelOrder(ctx, order.ID)
	if err != nil {
		return repo.Order{}, err
	}
	if rows == 0 {
		return repo.Order{}, common.ConflictError("INVALID_STATE", "order can no longer be canceled", nil)
	}
	if order.PaymentStatus == repo.PaymentStatusPaid {
		if _, err := qtx.CreateTransaction(ctx, repo.CreateTransactionParams{
			OrderID:  pgtype.Int8{Int64: order.ID, Valid: true},
			UserID:   pgtype.Int8{Int64: order.UserID, Valid: true},
			Type:     repo.TxnTypeRefund,
			Status:   repo.TxnStatusPending,
			Amount:   order.TotalAmount,
			Currency: order.Currency,
			Provider: "",
		}); err != nil {
			return repo.Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return repo.Order{}, err
	}

	if obs.OrdersTotal != nil {
		obs.OrdersTotal.WithLabelValues("canceled", "ok").Inc()
	}
	if s.Events != nil {
		if err := s.Events.Emit(ctx, events.TopicOrderCanceled, map[string]any{
			"order_id": order.ID,
			"reason":   "user_request",
		}); err != nil {
			s.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("emit order.canceled")
		}
	}
	updated, err := s.Q.GetOrderByID(ctx, order.ID)
	if err != nil {
		return order, nil
	}
	return updated, nil
}
