package repo

import "context"

const listCartDetails = `-- name: ListCartDetails :many
SELECT ci.id, ci.project_id, p.title, ci.quantity,
       COALESCE(p.discount_price, p.price) AS unit_price,
       p.is_active
FROM cart_items ci
JOIN projects p ON p.id = ci.project_id
WHERE ci.user_id = $1
ORDER BY ci.created_at
`

// ListCartDetails returns the cart joined with project pricing. The unit
// price resolves to the discount price when one is set.
func (q *Queries) ListCartDetails(ctx context.Context, userID int64) ([]CartItemDetail, error) {
	rows, err := q.db.Query(ctx, listCartDetails, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItemDetail
	for rows.Next() {
		var d CartItemDetail
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Quantity, &d.UnitPrice, &d.IsActive); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

type UpsertCartItemParams struct {
	UserID    int64
	ProjectID int64
	Quantity  int32
}

const upsertCartItem = `-- name: UpsertCartItem :one
INSERT INTO cart_items (user_id, project_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, project_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING id, user_id, project_id, quantity, created_at
`

func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem, arg.UserID, arg.ProjectID, arg.Quantity)
	var c CartItem
	err := row.Scan(&c.ID, &c.UserID, &c.ProjectID, &c.Quantity, &c.CreatedAt)
	return c, err
}

type SetCartItemQuantityParams struct {
	UserID    int64
	ProjectID int64
	Quantity  int32
}

const setCartItemQuantity = `-- name: SetCartItemQuantity :execrows
UPDATE cart_items
SET quantity = $3
WHERE user_id = $1 AND project_id = $2
`

func (q *Queries) SetCartItemQuantity(ctx context.Context, arg SetCartItemQuantityParams) (int64, error) {
	tag, err := q.db.Exec(ctx, setCartItemQuantity, arg.UserID, arg.ProjectID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type DeleteCartItemParams struct {
	UserID    int64
	ProjectID int64
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items
WHERE user_id = $1 AND project_id = $2
`

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.UserID, arg.ProjectID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearCart = `-- name: ClearCart :exec
DELETE FROM cart_items
WHERE user_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, userID int64) error {
	_, err := q.db.Exec(ctx, clearCart, userID)
	return err
}
