package repo

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Order status values. An order moves pending -> processing -> completed,
// with canceled reachable only from pending or processing.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
)

// Payment status values.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Transaction types and states.
const (
	TxnTypePurchase = "purchase"
	TxnTypeRefund   = "refund"
	TxnTypeDonation = "donation"
	TxnTypePayout   = "payout"

	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
	TxnStatusFailed    = "failed"
)

// Donation status values. pending_approval marks money already moved
// (balance debited) or a gateway charge awaiting admin settlement.
const (
	DonationStatusPending         = "pending"
	DonationStatusPendingApproval = "pending_approval"
	DonationStatusCompleted       = "completed"
	DonationStatusRejected        = "rejected"
)

// Coupon discount types.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	ID            int64
	OwnerID       int64
	Title         string
	Slug          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	// DonationReceived is the project's lifetime settled donation total.
	DonationReceived decimal.Decimal
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CartItem struct {
	ID        int64
	UserID    int64
	ProjectID int64
	Quantity  int32
	CreatedAt time.Time
}

// CartItemDetail joins cart items with project pricing. UnitPrice already
// resolves to the discount price when one is set.
type CartItemDetail struct {
	ID        int64
	ProjectID int64
	Title     string
	Quantity  int32
	UnitPrice decimal.Decimal
	IsActive  bool
}

type Coupon struct {
	ID            int64
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxAmount     decimal.NullDecimal
	MinAmount     decimal.NullDecimal
	// UsageLimit is the global redemption cap; an invalid value means
	// the coupon has no cap.
	UsageLimit pgtype.Int4
	UsageCount int32
	// OneTimeUse restricts the coupon to one order per account.
	OneTimeUse bool
	ProjectID  pgtype.Int8
	UserID     pgtype.Int8
	IsActive   bool
	ExpiresAt  pgtype.Timestamptz
	CreatedAt  time.Time
}

type Order struct {
	ID             int64
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
	OrderStatus    string
	PaymentStatus  string
	PaidAt         pgtype.Timestamptz
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProjectID int64
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int32
	LineTotal decimal.Decimal
}

type Transaction struct {
	ID         int64
	OrderID    pgtype.Int8
	DonationID pgtype.Int8
	// UserID is unset for guest donation transactions.
	UserID        pgtype.Int8
	Type          string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	Provider      string
	ProviderTxnID pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ProjectDonation struct {
	ID            int64
	ProjectID     int64
	DonorID       pgtype.Int8
	Amount        decimal.Decimal
	Message       pgtype.Text
	IsAnonymous   bool
	PaymentMethod string
	// TransactionID is the human-readable payment reference assigned at
	// submission, e.g. DON-BAL-1756684800000.
	TransactionID string
	Status        string
	ApprovedBy    pgtype.Int8
	ApprovedAt    pgtype.Timestamptz
	CreatedAt     time.Time
}

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type DomainEvent struct {
	ID        int64
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}

type AuditLog struct {
	ID        int64
	ActorID   int64
	Action    string
	Entity    string
	EntityID  string
	Detail    []byte
	CreatedAt time.Time
}
