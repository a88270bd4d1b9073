package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
	"github.com/kodpazar/backend-api/internal/settings"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// stubStore replays a cart and records every write. ExecTx snapshots the
// state and restores it when the callback fails, matching the real
// transaction's all-or-nothing behavior.
type stubStore struct {
	cart      []repo.CartItemDetail
	coupons   map[string]repo.Coupon
	usedWith  int64
	orders    []repo.Order
	items     []repo.CreateOrderItemParams
	txns      []repo.CreateTransactionParams
	cleared   bool
	redeemed  []int64
	exhausted bool
	failTxn   bool
	commits   int
	rollbacks int
}

func newStubStore(cart ...repo.CartItemDetail) *stubStore {
	return &stubStore{cart: cart, coupons: map[string]repo.Coupon{}}
}

func (s *stubStore) snapshot() *stubStore {
	cp := *s
	cp.orders = append([]repo.Order(nil), s.orders...)
	cp.items = append([]repo.CreateOrderItemParams(nil), s.items...)
	cp.txns = append([]repo.CreateTransactionParams(nil), s.txns...)
	cp.redeemed = append([]int64(nil), s.redeemed...)
	return &cp
}

func (s *stubStore) ExecTx(_ context.Context, fn func(Querier) error) error {
	before := s.snapshot()
	if err := fn(s); err != nil {
		*s = *before
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *stubStore) ListCartDetails(context.Context, int64) ([]repo.CartItemDetail, error) {
	return s.cart, nil
}

func (s *stubStore) GetActiveCouponByCode(_ context.Context, code string) (repo.Coupon, error) {
	c, ok := s.coupons[code]
	if !ok {
		return repo.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubStore) CountOrdersWithCoupon(_ context.Context, arg repo.CountOrdersWithCouponParams) (int64, error) {
	if arg.CouponID == s.usedWith {
		return 1, nil
	}
	return 0, nil
}

func (s *stubStore) RedeemCoupon(_ context.Context, id int64) (int64, error) {
	if s.exhausted {
		return 0, nil
	}
	s.redeemed = append(s.redeemed, id)
	return 1, nil
}

func (s *stubStore) CreateOrder(_ context.Context, arg repo.CreateOrderParams) (repo.Order, error) {
	o := repo.Order{
		ID:             int64(len(s.orders) + 1),
		OrderNumber:    arg.OrderNumber,
		UserID:         arg.UserID,
		BillingName:    arg.BillingName,
		BillingEmail:   arg.BillingEmail,
		BillingAddress: arg.BillingAddress,
		Subtotal:       arg.Subtotal,
		DiscountAmount: arg.DiscountAmount,
		TotalAmount:    arg.TotalAmount,
		CouponID:       arg.CouponID,
		CouponCode:     arg.CouponCode,
		CommissionRate: arg.CommissionRate,
		Currency:       arg.Currency,
		OrderStatus:    repo.OrderStatusPending,
		PaymentStatus:  repo.PaymentStatusUnpaid,
	}
	s.orders = append(s.orders, o)
	return o, nil
}

func (s *stubStore) CreateOrderItem(_ context.Context, arg repo.CreateOrderItemParams) error {
	s.items = append(s.items, arg)
	return nil
}

func (s *stubStore) ClearCart(context.Context, int64) error {
	s.cleared = true
	return nil
}

func (s *stubStore) CreateTransaction(_ context.Context, arg repo.CreateTransactionParams) (repo.Transaction, error) {
	if s.failTxn {
		return repo.Transaction{}, errors.New("insert transaction failed")
	}
	s.txns = append(s.txns, arg)
	return repo.Transaction{ID: int64(len(s.txns)), UserID: arg.UserID}, nil
}

type stubSettings struct{}

func (stubSettings) GetSetting(context.Context, string) (repo.Setting, error) {
	return repo.Setting{}, pgx.ErrNoRows
}

func (stubSettings) UpsertSetting(_ context.Context, arg repo.UpsertSettingParams) (repo.Setting, error) {
	return repo.Setting{Key: arg.Key, Value: arg.Value}, nil
}

func (stubSettings) ListSettings(context.Context) ([]repo.Setting, error) { return nil, nil }

func newTestService(store *stubStore) *Service {
	return &Service{
		DB:       store,
		Settings: &settings.Service{Q: stubSettings{}, DefaultCommissionRate: dec("10")},
		Currency: "TRY",
		Now:      func() time.Time { return time.Unix(1756684800, 0) },
	}
}

func billing() Input {
	return Input{
		BillingName:    "Ada Yilmaz",
		BillingEmail:   "ada@example.com",
		BillingAddress: "Bagdat Cd. 1, Istanbul",
	}
}

func twoItemCart() []repo.CartItemDetail {
	return []repo.CartItemDetail{
		{ID: 1, ProjectID: 10, Title: "Atlas", Quantity: 2, UnitPrice: dec("50"), IsActive: true},
		{ID: 2, ProjectID: 11, Title: "Beacon", Quantity: 1, UnitPrice: dec("100"), IsActive: true},
	}
}

func TestCreateWritesOrderAtomically(t *testing.T) {
	store := newStubStore(twoItemCart()...)
	svc := newTestService(store)

	out, err := svc.Create(context.Background(), 7, billing())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !out.Subtotal.Equal(dec("200")) || !out.Total.Equal(dec("200")) {
		t.Fatalf("subtotal/total = %s/%s, want 200/200", out.Subtotal, out.Total)
	}
	if len(store.orders) != 1 || len(store.items) != 2 || !store.cleared {
		t.Fatalf("order=%d items=%d cleared=%v", len(store.orders), len(store.items), store.cleared)
	}
	if len(store.txns) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.txns))
	}
	txn := store.txns[0]
	if txn.Type != repo.TxnTypePurchase || txn.Status != repo.TxnStatusPending {
		t.Fatalf("transaction = %s/%s", txn.Type, txn.Status)
	}
	if !txn.UserID.Valid || txn.UserID.Int64 != 7 {
		t.Fatalf("transaction user = %+v, want 7", txn.UserID)
	}
	if store.commits != 1 {
		t.Fatalf("commits = %d, want 1", store.commits)
	}
}

func TestCreateRollsBackWhenTransactionInsertFails(t *testing.T) {
	store := newStubStore(twoItemCart()...)
	store.failTxn = true
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, billing())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.orders) != 0 || len(store.items) != 0 {
		t.Fatalf("aborted checkout left %d orders, %d items", len(store.orders), len(store.items))
	}
	if store.cleared {
		t.Fatal("cart cleared despite the failed checkout")
	}
	if store.commits != 0 || store.rollbacks != 1 {
		t.Fatalf("commits/rollbacks = %d/%d, want 0/1", store.commits, store.rollbacks)
	}
}

func TestCreateRejectsExhaustedCouponAndRollsBack(t *testing.T) {
	store := newStubStore(twoItemCart()...)
	store.coupons["SAVE10"] = repo.Coupon{
		ID: 3, Code: "SAVE10", DiscountType: repo.DiscountTypePercentage,
		DiscountValue: dec("10"), UsageLimit: pgtype.Int4{Int32: 5, Valid: true},
		UsageCount: 4, IsActive: true,
	}
	// Another checkout takes the last redemption between validation and
	// the guarded usage_count update.
	store.exhausted = true
	svc := newTestService(store)

	code := "SAVE10"
	in := billing()
	in.CouponCode = &code
	_, err := svc.Create(context.Background(), 7, in)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "USAGE_LIMIT" {
		t.Fatalf("err = %v, want USAGE_LIMIT", err)
	}
	if len(store.orders) != 0 || store.cleared {
		t.Fatal("losing checkout still wrote state")
	}
	if store.rollbacks != 1 {
		t.Fatalf("rollbacks = %d, want 1", store.rollbacks)
	}
}

func TestCreateRejectsReusedOneTimeCoupon(t *testing.T) {
	store := newStubStore(twoItemCart()...)
	store.coupons["THANKS5"] = repo.Coupon{
		ID: 4, Code: "THANKS5", DiscountType: repo.DiscountTypePercentage,
		DiscountValue: dec("5"), OneTimeUse: true, IsActive: true,
	}
	store.usedWith = 4
	svc := newTestService(store)

	code := "THANKS5"
	in := billing()
	in.CouponCode = &code
	_, err := svc.Create(context.Background(), 7, in)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "ALREADY_USED" {
		t.Fatalf("err = %v, want ALREADY_USED", err)
	}
	if len(store.redeemed) != 0 {
		t.Fatal("reused coupon was redeemed")
	}
}

func TestCreateClampsOversizedFixedCoupon(t *testing.T) {
	store := newStubStore(twoItemCart()...)
	store.coupons["BIG500"] = repo.Coupon{
		ID: 5, Code: "BIG500", DiscountType: repo.DiscountTypeFixed,
		DiscountValue: dec("500"), IsActive: true,
	}
	svc := newTestService(store)

	code := "BIG500"
	in := billing()
	in.CouponCode = &code
	out, err := svc.Create(context.Background(), 7, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// A 500 TRY coupon on a 200 TRY cart discounts the whole cart, never
	// below zero.
	if !out.Discount.Equal(dec("200")) {
		t.Fatalf("discount = %s, want 200", out.Discount)
	}
	if !out.Total.Equal(dec("0")) {
		t.Fatalf("total = %s, want 0", out.Total)
	}
	if !store.orders[0].TotalAmount.Equal(dec("0")) {
		t.Fatalf("stored total = %s, want 0", store.orders[0].TotalAmount)
	}
}

func TestCreateRejectsInactiveProject(t *testing.T) {
	store := newStubStore(repo.CartItemDetail{ID: 1, ProjectID: 10, Title: "Atlas", Quantity: 1, UnitPrice: dec("50"), IsActive: false})
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, billing())
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION" {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
	if store.commits != 0 {
		t.Fatalf("commits = %d, want 0", store.commits)
	}
}
