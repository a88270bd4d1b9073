package repo

import (
	"context"

	"github.com/shopspring/decimal"
)

const getProjectByID = `-- name: GetProjectByID :one
SELECT id, owner_id, title, slug, description, price, discount_price, donation_received, is_active, created_at, updated_at
FROM projects
WHERE id = $1
`

func (q *Queries) GetProjectByID(ctx context.Context, id int64) (Project, error) {
	row := q.db.QueryRow(ctx, getProjectByID, id)
	var p Project
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.DonationReceived,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getProjectBySlug = `-- name: GetProjectBySlug :one
SELECT id, owner_id, title, slug, description, price, discount_price, donation_received, is_active, created_at, updated_at
FROM projects
WHERE slug = $1 AND is_active
`

func (q *Queries) GetProjectBySlug(ctx context.Context, slug string) (Project, error) {
	row := q.db.QueryRow(ctx, getProjectBySlug, slug)
	var p Project
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.DonationReceived,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const listActiveProjects = `-- name: ListActiveProjects :many
SELECT id, owner_id, title, slug, description, price, discount_price, donation_received, is_active, created_at, updated_at
FROM projects
WHERE is_active
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListActiveProjectsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListActiveProjects(ctx context.Context, arg ListActiveProjectsParams) ([]Project, error) {
	rows, err := q.db.Query(ctx, listActiveProjects, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID,
			&p.OwnerID,
			&p.Title,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.DiscountPrice,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type AddProjectDonationReceivedParams struct {
	ID     int64
	Amount decimal.Decimal
}

const addProjectDonationReceived = `-- name: AddProjectDonationReceived :exec
UPDATE projects
SET donation_received = donation_received + $2, updated_at = now()
WHERE id = $1
`

// AddProjectDonationReceived bumps the project's lifetime donation total
// when a donation settles.
func (q *Queries) AddProjectDonationReceived(ctx context.Context, arg AddProjectDonationReceivedParams) error {
	_, err := q.db.Exec(ctx, addProjectDonationReceived, arg.ID, arg.Amount)
	return err
}
