package repo

import (
	"context"

	"github.com/shopspring/decimal"
)

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, password_hash, full_name, role, balance, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, password_hash, full_name, role, balance, created_at, updated_at
FROM users
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         string
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, password_hash, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password_hash, full_name, role, balance, created_at, updated_at
`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.PasswordHash, arg.FullName, arg.Role)
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

type DebitUserBalanceParams struct {
	ID     int64
	Amount decimal.Decimal
}

const debitUserBalance = `-- name: DebitUserBalance :execrows
UPDATE users
SET balance = balance - $2, updated_at = now()
WHERE id = $1 AND balance >= $2
`

// DebitUserBalance subtracts amount only when the balance covers it.
// A zero row count means insufficient funds; nothing was changed.
func (q *Queries) DebitUserBalance(ctx context.Context, arg DebitUserBalanceParams) (int64, error) {
	tag, err := q.db.Exec(ctx, debitUserBalance, arg.ID, arg.Amount)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CreditUserBalanceParams struct {
	ID     int64
	Amount decimal.Decimal
}

const creditUserBalance = `-- name: CreditUserBalance :exec
UPDATE users
SET balance = balance + $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) CreditUserBalance(ctx context.Context, arg CreditUserBalanceParams) error {
	_, err := q.db.Exec(ctx, creditUserBalance, arg.ID, arg.Amount)
	return err
}
