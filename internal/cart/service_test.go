package cart

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

type stubQuerier struct {
	details  []repo.CartItemDetail
	projects map[int64]repo.Project
	upserts  []repo.UpsertCartItemParams
	deleted  []repo.DeleteCartItemParams
	setRows  int64
}

func (s *stubQuerier) ListCartDetails(context.Context, int64) ([]repo.CartItemDetail, error) {
	return s.details, nil
}

func (s *stubQuerier) GetProjectByID(_ context.Context, id int64) (repo.Project, error) {
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return repo.Project{}, pgx.ErrNoRows
}

func (s *stubQuerier) UpsertCartItem(_ context.Context, arg repo.UpsertCartItemParams) (repo.CartItem, error) {
	s.upserts = append(s.upserts, arg)
	return repo.CartItem{UserID: arg.UserID, ProjectID: arg.ProjectID, Quantity: arg.Quantity}, nil
}

func (s *stubQuerier) SetCartItemQuantity(context.Context, repo.SetCartItemQuantityParams) (int64, error) {
	return s.setRows, nil
}

func (s *stubQuerier) DeleteCartItem(_ context.Context, arg repo.DeleteCartItemParams) (int64, error) {
	s.deleted = append(s.deleted, arg)
	return 1, nil
}

func (s *stubQuerier) ClearCart(context.Context, int64) error { return nil }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGetComputesTotals(t *testing.T) {
	q := &stubQuerier{details: []repo.CartItemDetail{
		{ProjectID: 1, Title: "API starter", Quantity: 2, UnitPrice: dec("250")},
		{ProjectID: 2, Title: "Admin panel", Quantity: 1, UnitPrice: dec("500")},
	}}
	svc := &Service{Q: q}
	view, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.Subtotal.Equal(dec("1000")) {
		t.Fatalf("subtotal = %s, want 1000", view.Subtotal)
	}
	if !view.Items[0].LineTotal.Equal(dec("500")) {
		t.Fatalf("line total = %s, want 500", view.Items[0].LineTotal)
	}
}

func TestAddItemRejectsInactiveProject(t *testing.T) {
	q := &stubQuerier{projects: map[int64]repo.Project{
		5: {ID: 5, IsActive: false, Price: dec("100")},
	}}
	svc := &Service{Q: q}
	err := svc.AddItem(context.Background(), 1, 5, 1)
	var appErr *common.AppError
	if !common.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if ok := errAs(err, &appErr); !ok || appErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", appErr)
	}
	if len(q.upserts) != 0 {
		t.Fatal("inactive project must not reach the cart")
	}
}

func TestAddItemUnknownProject(t *testing.T) {
	svc := &Service{Q: &stubQuerier{projects: map[int64]repo.Project{}}}
	err := svc.AddItem(context.Background(), 1, 99, 1)
	var appErr *common.AppError
	if !errAs(err, &appErr) || appErr.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUpdateItemZeroRemoves(t *testing.T) {
	q := &stubQuerier{}
	svc := &Service{Q: q}
	if err := svc.UpdateItem(context.Background(), 1, 5, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(q.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(q.deleted))
	}
}

func TestUpdateItemMissingLine(t *testing.T) {
	svc := &Service{Q: &stubQuerier{setRows: 0}}
	err := svc.UpdateItem(context.Background(), 1, 5, 3)
	var appErr *common.AppError
	if !errAs(err, &appErr) || appErr.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func errAs(err error, target **common.AppError) bool {
	return errors.As(err, target)
}
