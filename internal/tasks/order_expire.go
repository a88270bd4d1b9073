package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/repo"
)

// TypeOrderExpire cancels an order that was never paid within the payment window.
const TypeOrderExpire = "order:expire"

// OrderExpirePayload identifies the order to expire.
type OrderExpirePayload struct {
	OrderID int64 `json:"order_id"`
}

// NewOrderExpireTask builds the delayed expiry task enqueued at checkout.
func NewOrderExpireTask(orderID int64, delay time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderExpirePayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderExpire, payload, asynq.ProcessIn(delay), asynq.MaxRetry(3)), nil
}

// OrderExpirer cancels stale unpaid orders.
type OrderExpirer struct {
	Q      *repo.Queries
	Events *events.Bus
	Log    zerolog.Logger
}

// Handle processes an order:expire task. The cancel guard makes expiry a
// no-op when the order was paid or canceled in the meantime.
func (e *OrderExpirer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OrderExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("order expire payload: %v: %w", err, asynq.SkipRetry)
	}
	order, err := e.Q.GetOrderByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != repo.PaymentStatusUnpaid || order.OrderStatus != repo.OrderStatusPending {
		return nil
	}
	rows, err := e.Q.CancelOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}
	e.Log.Info().Int64("order_id", order.ID).Str("order_number", order.OrderNumber).Msg("order expired")
	if e.Events != nil {
		if err := e.Events.Emit(ctx, events.TopicOrderCanceled, map[string]any{
			"order_id": order.ID,
			"reason":   "payment_window_elapsed",
		}); err != nil && !errors.Is(err, context.Canceled) {
			e.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("emit order.canceled")
		}
	}
	return nil
}
