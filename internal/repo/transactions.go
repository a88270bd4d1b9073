package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, order_id, donation_id, user_id, type, status, amount, currency, provider, provider_txn_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.DonationID,
		&t.UserID,
		&t.Type,
		&t.Status,
		&t.Amount,
		&t.Currency,
		&t.Provider,
		&t.ProviderTxnID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

type CreateTransactionParams struct {
	OrderID    pgtype.Int8
	DonationID pgtype.Int8
	UserID     pgtype.Int8
	Type       string
	Status     string
	Amount     decimal.Decimal
	Currency   string
	Provider   string
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (order_id, donation_id, user_id, type, status, amount, currency, provider)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + transactionColumns + `
`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, createTransaction,
		arg.OrderID,
		arg.DonationID,
		arg.UserID,
		arg.Type,
		arg.Status,
		arg.Amount,
		arg.Currency,
		arg.Provider,
	))
}

type CompleteOrderTransactionParams struct {
	OrderID       int64
	Type          string
	ProviderTxnID pgtype.Text
}

const completeOrderTransaction = `-- name: CompleteOrderTransaction :execrows
UPDATE transactions
SET status = 'completed', provider_txn_id = $3, updated_at = now()
WHERE order_id = $1 AND type = $2 AND status = 'pending'
`

func (q *Queries) CompleteOrderTransaction(ctx context.Context, arg CompleteOrderTransactionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, completeOrderTransaction, arg.OrderID, arg.Type, arg.ProviderTxnID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const completeDonationTransaction = `-- name: CompleteDonationTransaction :execrows
UPDATE transactions
SET status = 'completed', updated_at = now()
WHERE donation_id = $1 AND type = 'donation' AND status = 'pending'
`

func (q *Queries) CompleteDonationTransaction(ctx context.Context, donationID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, completeDonationTransaction, donationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListTransactionsByOrderParams struct {
	OrderID int64
}

const listTransactionsByOrder = `-- name: ListTransactionsByOrder :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListTransactionsByOrder(ctx context.Context, orderID int64) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type ListTransactionsByUserParams struct {
	UserID int64
	Limit  int32
	Offset int32
}

const listTransactionsByUser = `-- name: ListTransactionsByUser :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListTransactionsByUser(ctx context.Context, arg ListTransactionsByUserParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
