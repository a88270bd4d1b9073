package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, user_id, billing_name, billing_email, billing_address, subtotal, discount_amount, total_amount, coupon_id, coupon_code, commission_rate, currency, order_status, payment_status, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.BillingName,
		&o.BillingEmail,
		&o.BillingAddress,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.CouponID,
		&o.CouponCode,
		&o.CommissionRate,
		&o.Currency,
		&o.OrderStatus,
		&o.PaymentStatus,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber    string
	UserID         int64
	BillingName    string
	BillingEmail   string
	BillingAddress string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	CouponID       pgtype.Int8
	CouponCode     pgtype.Text
	CommissionRate decimal.NullDecimal
	Currency       string
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (order_number, user_id, billing_name, billing_email, billing_address, subtotal, discount_amount, total_amount, coupon_id, coupon_code, commission_rate, currency, order_status, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'pending', 'unpaid')
RETURNING ` + orderColumns + `
`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.UserID,
		arg.BillingName,
		arg.BillingEmail,
		arg.BillingAddress,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.TotalAmount,
		arg.CouponID,
		arg.CouponCode,
		arg.CommissionRate,
		arg.Currency,
	))
}

type CreateOrderItemParams struct {
	OrderID   int64
	ProjectID int64
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int32
	LineTotal decimal.Decimal
}

const createOrderItem = `-- name: CreateOrderItem :exec
INSERT INTO order_items (order_id, project_id, title, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem,
		arg.OrderID,
		arg.ProjectID,
		arg.Title,
		arg.UnitPrice,
		arg.Quantity,
		arg.LineTotal,
	)
	return err
}

const getOrderByID = `-- name: GetOrderByID :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT ` + orderColumns + `
FROM orders
WHERE order_number = $1
`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT id, order_id, project_id, title, unit_price, quantity, line_total
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProjectID, &it.Title, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type ListOrdersByUserParams struct {
	UserID int64
	Limit  int32
	Offset int32
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type ListOrdersParams struct {
	OrderStatus   pgtype.Text
	PaymentStatus pgtype.Text
	Limit         int32
	Offset        int32
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR order_status = $1)
  AND ($2::text IS NULL OR payment_status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.OrderStatus, arg.PaymentStatus, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const markOrderPaid = `-- name: MarkOrderPaid :execrows
UPDATE orders
SET payment_status = 'paid', order_status = 'processing', paid_at = now(), updated_at = now()
WHERE id = $1 AND payment_status = 'unpaid'
`

// MarkOrderPaid flips an unpaid order to paid and processing. Zero rows
// affected means the order was already paid or refunded.
func (q *Queries) MarkOrderPaid(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, markOrderPaid, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const cancelOrder = `-- name: CancelOrder :execrows
UPDATE orders
SET order_status = 'canceled', updated_at = now()
WHERE id = $1 AND order_status IN ('pending', 'processing')
`

func (q *Queries) CancelOrder(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, cancelOrder, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const completeOrder = `-- name: CompleteOrder :execrows
UPDATE orders
SET order_status = 'completed', updated_at = now()
WHERE id = $1 AND order_status = 'processing'
`

func (q *Queries) CompleteOrder(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, completeOrder, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type OverrideOrderStatusParams struct {
	ID            int64
	OrderStatus   pgtype.Text
	PaymentStatus pgtype.Text
}

const overrideOrderStatus = `-- name: OverrideOrderStatus :one
UPDATE orders
SET order_status = COALESCE($2, order_status),
    payment_status = COALESCE($3, payment_status),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

// OverrideOrderStatus applies an admin correction without lifecycle guards.
// Callers are responsible for auditing the change.
func (q *Queries) OverrideOrderStatus(ctx context.Context, arg OverrideOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, overrideOrderStatus, arg.ID, arg.OrderStatus, arg.PaymentStatus))
}

type ListExpiredPendingOrdersParams struct {
	Cutoff time.Time
	Limit  int32
}

const listExpiredPendingOrders = `-- name: ListExpiredPendingOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE order_status = 'pending' AND payment_status = 'unpaid' AND created_at < $1
ORDER BY created_at
LIMIT $2
`

func (q *Queries) ListExpiredPendingOrders(ctx context.Context, arg ListExpiredPendingOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listExpiredPendingOrders, arg.Cutoff, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type CountOrdersWithCouponParams struct {
	UserID   int64
	CouponID int64
}

const countOrdersWithCoupon = `-- name: CountOrdersWithCoupon :one
SELECT COUNT(*)
FROM orders
WHERE user_id = $1 AND coupon_id = $2 AND order_status <> 'canceled'
`

// CountOrdersWithCoupon reports how many live orders the user already has
// against the coupon, the input to the one-time-use check.
func (q *Queries) CountOrdersWithCoupon(ctx context.Context, arg CountOrdersWithCouponParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersWithCoupon, arg.UserID, arg.CouponID).Scan(&n)
	return n, err
}
