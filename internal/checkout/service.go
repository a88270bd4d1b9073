package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/coupon"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/pricing"
	"github.com/kodpazar/backend-api/internal/repo"
	"github.com/kodpazar/backend-api/internal/settings"
	"github.com/kodpazar/backend-api/internal/tasks"
)

// Querier captures the storage operations a checkout performs.
type Querier interface {
	ListCartDetails(ctx context.Context, userID int64) ([]repo.CartItemDetail, error)
	GetActiveCouponByCode(ctx context.Context, code string) (repo.Coupon, error)
	CountOrdersWithCoupon(ctx context.Context, arg repo.CountOrdersWithCouponParams) (int64, error)
	RedeemCoupon(ctx context.Context, id int64) (int64, error)
	CreateOrder(ctx context.Context, arg repo.CreateOrderParams) (repo.Order, error)
	CreateOrderItem(ctx context.Context, arg repo.CreateOrderItemParams) error
	ClearCart(ctx context.Context, userID int64) error
	CreateTransaction(ctx context.Context, arg repo.CreateTransactionParams) (repo.Transaction, error)
}

// Store is a Querier that can also run work in a database transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// NewStore adapts the repo layer to the checkout store.
func NewStore(s *repo.Store) Store {
	return repoStore{s}
}

type repoStore struct {
	*repo.Store
}

func (r repoStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	return r.Store.ExecTx(ctx, func(q *repo.Queries) error {
		return fn(q)
	})
}

// Input carries the billing details submitted at checkout.
type Input struct {
	BillingName    string  `json:"billing_name" validate:"required,min=2,max=120"`
	BillingEmail   string  `json:"billing_email" validate:"required,email"`
	BillingAddress string  `json:"billing_address" validate:"required,min=5"`
	CouponCode     *string `json:"coupon_code" validate:"omitempty,min=2,max=64"`
}

// Output summarises the created order.
type Output struct {
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	OrderStatus    string          `json:"order_status"`
	PaymentStatus  string          `json:"payment_status"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// Service turns a cart into an order inside one database transaction.
type Service struct {
	DB       Store
	Settings *settings.Service
	Events   *events.Bus
	Tasks    *asynq.Client
	Log      zerolog.Logger

	Currency   string
	PaymentTTL time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates billing details, prices the cart, applies an optional
// coupon and writes the order, its item snapshot, the cleared cart and a
// pending purchase transaction atomically. A failure at any step leaves no
// partial order behind.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (Output, error) {
	if s == nil || s.DB == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := validateBilling(in); err != nil {
		return Output{}, err
	}

	// The rate is pinned on the order at creation so later settings
	// changes never reprice historical orders.
	commissionRate, err := s.Settings.CommissionRate(ctx)
	if err != nil {
		return Output{}, err
	}

	start := time.Now()
	var order repo.Order
	var quote pricing.Quote
	err = s.DB.ExecTx(ctx, func(q Querier) error {
		details, err := q.ListCartDetails(ctx, userID)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return common.ValidationError("cart is empty", nil)
		}
		items := make([]pricing.Item, 0, len(details))
		projectIDs := make([]int64, 0, len(details))
		for _, d := range details {
			if !d.IsActive {
				return common.ValidationError(fmt.Sprintf("project %q is no longer available", d.Title), nil)
			}
			items = append(items, pricing.Item{
				ProjectID: d.ProjectID,
				Title:     d.Title,
				Qty:       int(d.Quantity),
				UnitPrice: d.UnitPrice,
			})
			projectIDs = append(projectIDs, d.ProjectID)
		}
		subtotal := pricing.Subtotal(items)

		discount := decimal.Zero
		var couponID pgtype.Int8
		var couponCode pgtype.Text
		if in.CouponCode != nil && strings.TrimSpace(*in.CouponCode) != "" {
			c, err := s.applyCoupon(ctx, q, *in.CouponCode, subtotal, coupon.Scope{UserID: userID, ProjectIDs: projectIDs})
			if err != nil {
				return err
			}
			discount = coupon.Compute(subtotal, coupon.RuleFromModel(c))
			couponID = pgtype.Int8{Int64: c.ID, Valid: true}
			couponCode = pgtype.Text{String: c.Code, Valid: true}
		}

		quote = pricing.ComputeQuote(items, discount)

		order, err = s.insertOrder(ctx, q, userID, in, quote, couponID, couponCode, commissionRate)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := q.CreateOrderItem(ctx, repo.CreateOrderItemParams{
				OrderID:   order.ID,
				ProjectID: it.ProjectID,
				Title:     it.Title,
				UnitPrice: it.UnitPrice,
				Quantity:  int32(it.Qty),
				LineTotal: pricing.LineTotal(it),
			}); err != nil {
				return err
			}
		}
		if err := q.ClearCart(ctx, userID); err != nil {
			return err
		}
		_, err = q.CreateTransaction(ctx, repo.CreateTransactionParams{
			OrderID:  pgtype.Int8{Int64: order.ID, Valid: true},
			UserID:   pgtype.Int8{Int64: userID, Valid: true},
			Type:     repo.TxnTypePurchase,
			Status:   repo.TxnStatusPending,
			Amount:   quote.Total,
			Currency: s.Currency,
			Provider: "",
		})
		return err
	})
	if err != nil {
		return Output{}, err
	}

	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.OrdersTotal != nil {
		obs.OrdersTotal.WithLabelValues("created", "ok").Inc()
	}
	s.afterCommit(ctx, order)

	return Output{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Subtotal:       quote.Subtotal,
		Discount:       quote.Discount,
		Total:          quote.Total,
		Currency:       order.Currency,
		OrderStatus:    order.OrderStatus,
		PaymentStatus:  order.PaymentStatus,
		CommissionRate: commissionRate,
	}, nil
}

// applyCoupon resolves, validates and redeems the coupon inside the checkout
// transaction. An invalid code rejects the checkout outright rather than
// silently pricing without it.
func (s *Service) applyCoupon(ctx context.Context, q Querier, code string, subtotal decimal.Decimal, scope coupon.Scope) (repo.Coupon, error) {
	c, err := q.GetActiveCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countCoupon("lookup", "miss")
			return repo.Coupon{}, common.ValidationError("coupon is invalid or expired", nil)
		}
		return repo.Coupon{}, err
	}
	rule := coupon.RuleFromModel(c)
	if err := rule.Validate(s.now(), subtotal, scope); err != nil {
		s.countCoupon("validate", "rejected")
		switch {
		case errors.Is(err, coupon.ErrUsageLimitReached):
			return repo.Coupon{}, common.ConflictError("USAGE_LIMIT", err.Error(), err)
		default:
			return repo.Coupon{}, common.ValidationError(err.Error(), err)
		}
	}
	if c.OneTimeUse {
		used, err := q.CountOrdersWithCoupon(ctx, repo.CountOrdersWithCouponParams{UserID: scope.UserID, CouponID: c.ID})
		if err != nil {
			return repo.Coupon{}, err
		}
		if used > 0 {
			s.countCoupon("validate", "rejected")
			return repo.Coupon{}, common.ConflictError("ALREADY_USED", coupon.ErrAlreadyUsed.Error(), coupon.ErrAlreadyUsed)
		}
	}
	rows, err := q.RedeemCoupon(ctx, c.ID)
	if err != nil {
		return repo.Coupon{}, err
	}
	if rows == 0 {
		s.countCoupon("redeem", "exhausted")
		return repo.Coupon{}, common.ConflictError("USAGE_LIMIT", "coupon usage limit reached", nil)
	}
	s.countCoupon("redeem", "ok")
	return c, nil
}

// insertOrder writes the order row, regenerating the order number on the
// rare collision with an existing one.
func (s *Service) insertOrder(ctx context.Context, q Querier, userID int64, in Input, quote pricing.Quote, couponID pgtype.Int8, couponCode pgtype.Text, commissionRate decimal.Decimal) (repo.Order, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		order, err := q.CreateOrder(ctx, repo.CreateOrderParams{
			OrderNumber:    GenerateOrderNumber(s.now()),
			UserID:         userID,
			BillingName:    strings.TrimSpace(in.BillingName),
			BillingEmail:   strings.TrimSpace(in.BillingEmail),
			BillingAddress: strings.TrimSpace(in.BillingAddress),
			Subtotal:       quote.Subtotal,
			DiscountAmount: quote.Discount,
			TotalAmount:    quote.Total,
			CouponID:       couponID,
			CouponCode:     couponCode,
			CommissionRate: decimal.NullDecimal{Decimal: commissionRate, Valid: true},
			Currency:       s.Currency,
		})
		if err == nil {
			return order, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			lastErr = err
			continue
		}
		return repo.Order{}, err
	}
	return repo.Order{}, fmt.Errorf("allocate order number: %w", lastErr)
}

func (s *Service) afterCommit(ctx context.Context, order repo.Order) {
	if s.Events != nil {
		if err := s.Events.Emit(ctx, events.TopicOrderCreated, map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"total":        order.TotalAmount,
		}); err != nil {
			s.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("emit order.created")
		}
	}
	if s.Tasks != nil && s.PaymentTTL > 0 {
		task, err := tasks.NewOrderExpireTask(order.ID, s.PaymentTTL)
		if err == nil {
			_, err = s.Tasks.EnqueueContext(ctx, task)
		}
		if err != nil {
			s.Log.Warn().Err(err).Int64("order_id", order.ID).Msg("enqueue order expiry")
		}
	}
}

func (s *Service) countCoupon(stage, result string) {
	if obs.CouponRedemptionTotal != nil {
		obs.CouponRedemptionTotal.WithLabelValues(stage, result).Inc()
	}
}

var validate = validator.New()

func validateBilling(in Input) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	appErr := common.ValidationError("invalid billing details", err)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		appErr.Details = details
	}
	return appErr
}
