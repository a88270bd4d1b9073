package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/pricing"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Querier captures the database methods required by the cart service.
type Querier interface {
	ListCartDetails(ctx context.Context, userID int64) ([]repo.CartItemDetail, error)
	GetProjectByID(ctx context.Context, id int64) (repo.Project, error)
	UpsertCartItem(ctx context.Context, arg repo.UpsertCartItemParams) (repo.CartItem, error)
	SetCartItemQuantity(ctx context.Context, arg repo.SetCartItemQuantityParams) (int64, error)
	DeleteCartItem(ctx context.Context, arg repo.DeleteCartItemParams) (int64, error)
	ClearCart(ctx context.Context, userID int64) error
}

// Line is a cart row with resolved pricing.
type Line struct {
	ProjectID int64           `json:"project_id"`
	Title     string          `json:"title"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// View is the cart contents plus the running subtotal.
type View struct {
	Items    []Line          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Service manages the user's cart.
type Service struct {
	Q Querier
}

// Get returns the cart with per-line and total pricing.
func (s *Service) Get(ctx context.Context, userID int64) (View, error) {
	details, err := s.Q.ListCartDetails(ctx, userID)
	if err != nil {
		return View{}, err
	}
	view := View{Items: make([]Line, 0, len(details)), Subtotal: decimal.Zero}
	for _, d := range details {
		lineTotal := pricing.LineTotal(pricing.Item{Qty: int(d.Quantity), UnitPrice: d.UnitPrice})
		view.Items = append(view.Items, Line{
			ProjectID: d.ProjectID,
			Title:     d.Title,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			LineTotal: lineTotal,
		})
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view, nil
}

// AddItem puts a project in the cart, merging quantities on repeat adds.
func (s *Service) AddItem(ctx context.Context, userID, projectID int64, quantity int32) error {
	if quantity <= 0 {
		return common.ValidationError("quantity must be positive", nil)
	}
	project, err := s.Q.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("project not found", err)
		}
		return err
	}
	if !project.IsActive {
		return common.ValidationError("project is not available", nil)
	}
	_, err = s.Q.UpsertCartItem(ctx, repo.UpsertCartItemParams{
		UserID:    userID,
		ProjectID: projectID,
		Quantity:  quantity,
	})
	return err
}

// UpdateItem sets the quantity for a project already in the cart. A zero
// quantity removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID, projectID int64, quantity int32) error {
	if quantity < 0 {
		return common.ValidationError("quantity must not be negative", nil)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, projectID)
	}
	rows, err := s.Q.SetCartItemQuantity(ctx, repo.SetCartItemQuantityParams{
		UserID:    userID,
		ProjectID: projectID,
		Quantity:  quantity,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return common.NotFoundError("item not in cart", nil)
	}
	return nil
}

// RemoveItem drops a project from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, projectID int64) error {
	rows, err := s.Q.DeleteCartItem(ctx, repo.DeleteCartItemParams{UserID: userID, ProjectID: projectID})
	if err != nil {
		return err
	}
	if rows == 0 {
		return common.NotFoundError("item not in cart", nil)
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.Q.ClearCart(ctx, userID)
}
