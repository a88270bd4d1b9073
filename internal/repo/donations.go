package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const donationColumns = `id, project_id, donor_id, amount, message, is_anonymous, payment_method, transaction_id, status, approved_by, approved_at, created_at`

func scanDonation(row interface{ Scan(...interface{}) error }) (ProjectDonation, error) {
	var d ProjectDonation
	err := row.Scan(
		&d.ID,
		&d.ProjectID,
		&d.DonorID,
		&d.Amount,
		&d.Message,
		&d.IsAnonymous,
		&d.PaymentMethod,
		&d.TransactionID,
		&d.Status,
		&d.ApprovedBy,
		&d.ApprovedAt,
		&d.CreatedAt,
	)
	return d, err
}

type CreateDonationParams struct {
	ProjectID     int64
	DonorID       pgtype.Int8
	Amount        decimal.Decimal
	Message       pgtype.Text
	IsAnonymous   bool
	PaymentMethod string
	TransactionID string
	Status        string
}

const createDonation = `-- name: CreateDonation :one
INSERT INTO project_donations (project_id, donor_id, amount, message, is_anonymous, payment_method, transaction_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + donationColumns + `
`

func (q *Queries) CreateDonation(ctx context.Context, arg CreateDonationParams) (ProjectDonation, error) {
	return scanDonation(q.db.QueryRow(ctx, createDonation,
		arg.ProjectID,
		arg.DonorID,
		arg.Amount,
		arg.Message,
		arg.IsAnonymous,
		arg.PaymentMethod,
		arg.TransactionID,
		arg.Status,
	))
}

const getDonationByID = `-- name: GetDonationByID :one
SELECT ` + donationColumns + `
FROM project_donations
WHERE id = $1
`

func (q *Queries) GetDonationByID(ctx context.Context, id int64) (ProjectDonation, error) {
	return scanDonation(q.db.QueryRow(ctx, getDonationByID, id))
}

type ApproveDonationParams struct {
	ID         int64
	ApprovedBy int64
}

const approveDonation = `-- name: ApproveDonation :one
UPDATE project_donations
SET status = 'completed', approved_by = $2, approved_at = now()
WHERE id = $1 AND status = 'pending_approval'
RETURNING ` + donationColumns + `
`

// ApproveDonation settles a donation exactly once. The status guard makes
// a second approval a no-op at the storage level; callers translate the
// missing row into a conflict.
func (q *Queries) ApproveDonation(ctx context.Context, arg ApproveDonationParams) (ProjectDonation, error) {
	return scanDonation(q.db.QueryRow(ctx, approveDonation, arg.ID, arg.ApprovedBy))
}

type RejectDonationParams struct {
	ID         int64
	ApprovedBy int64
}

const rejectDonation = `-- name: RejectDonation :one
UPDATE project_donations
SET status = 'rejected', approved_by = $2, approved_at = now()
WHERE id = $1 AND status IN ('pending', 'pending_approval')
RETURNING ` + donationColumns + `
`

func (q *Queries) RejectDonation(ctx context.Context, arg RejectDonationParams) (ProjectDonation, error) {
	return scanDonation(q.db.QueryRow(ctx, rejectDonation, arg.ID, arg.ApprovedBy))
}

type MarkDonationPendingApprovalParams struct {
	ID      int64
	DonorID int64
}

const markDonationPendingApproval = `-- name: MarkDonationPendingApproval :execrows
UPDATE project_donations
SET status = 'pending_approval'
WHERE id = $1 AND donor_id = $2 AND status = 'pending'
`

// MarkDonationPendingApproval promotes the caller's own pending donation.
// The donor guard keeps one account from confirming another's donation.
func (q *Queries) MarkDonationPendingApproval(ctx context.Context, arg MarkDonationPendingApprovalParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markDonationPendingApproval, arg.ID, arg.DonorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListDonationsByProjectParams struct {
	ProjectID int64
	Limit     int32
	Offset    int32
}

const listDonationsByProject = `-- name: ListDonationsByProject :many
SELECT ` + donationColumns + `
FROM project_donations
WHERE project_id = $1 AND status = 'completed'
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListDonationsByProject(ctx context.Context, arg ListDonationsByProjectParams) ([]ProjectDonation, error) {
	rows, err := q.db.Query(ctx, listDonationsByProject, arg.ProjectID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProjectDonation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

type ListDonationsByDonorParams struct {
	DonorID int64
	Limit   int32
	Offset  int32
}

const listDonationsByDonor = `-- name: ListDonationsByDonor :many
SELECT ` + donationColumns + `
FROM project_donations
WHERE donor_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListDonationsByDonor(ctx context.Context, arg ListDonationsByDonorParams) ([]ProjectDonation, error) {
	rows, err := q.db.Query(ctx, listDonationsByDonor, arg.DonorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProjectDonation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

type ListDonationsByStatusParams struct {
	Status string
	Limit  int32
	Offset int32
}

const listDonationsByStatus = `-- name: ListDonationsByStatus :many
SELECT ` + donationColumns + `
FROM project_donations
WHERE status = $1
ORDER BY created_at
LIMIT $2 OFFSET $3
`

func (q *Queries) ListDonationsByStatus(ctx context.Context, arg ListDonationsByStatusParams) ([]ProjectDonation, error) {
	rows, err := q.db.Query(ctx, listDonationsByStatus, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProjectDonation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

type TotalRecognizedDonationsParams struct {
	ProjectID int64
	DonorID   int64
}

const totalRecognizedDonations = `-- name: TotalRecognizedDonations :one
SELECT COALESCE(SUM(amount), 0)
FROM project_donations
WHERE project_id = $1 AND donor_id = $2 AND status IN ('completed', 'pending_approval')
`

// TotalRecognizedDonations returns the donor's total for a project, the
// input to incentive coupon sizing. Donations awaiting admin settlement
// count: the coupon is promised as soon as the money is committed.
func (q *Queries) TotalRecognizedDonations(ctx context.Context, arg TotalRecognizedDonationsParams) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, totalRecognizedDonations, arg.ProjectID, arg.DonorID).Scan(&total)
	return total, err
}
