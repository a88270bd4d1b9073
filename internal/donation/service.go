package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/coupon"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/ledger"
	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Payment methods accepted for donations.
const (
	MethodBalance    = "balance"
	MethodCreditCard = "credit_card"
	MethodOther      = "other"
)

// Querier captures the storage operations the donation flows perform. The
// method set includes everything ledger settlement needs, so a Querier can
// be handed to the ledger inside a transaction.
type Querier interface {
	GetProjectByID(ctx context.Context, id int64) (repo.Project, error)
	GetDonationByID(ctx context.Context, id int64) (repo.ProjectDonation, error)
	CreateDonation(ctx context.Context, arg repo.CreateDonationParams) (repo.ProjectDonation, error)
	CreateTransaction(ctx context.Context, arg repo.CreateTransactionParams) (repo.Transaction, error)
	DebitUserBalance(ctx context.Context, arg repo.DebitUserBalanceParams) (int64, error)
	CreditUserBalance(ctx context.Context, arg repo.CreditUserBalanceParams) error
	AddProjectDonationReceived(ctx context.Context, arg repo.AddProjectDonationReceivedParams) error
	ApproveDonation(ctx context.Context, arg repo.ApproveDonationParams) (repo.ProjectDonation, error)
	RejectDonation(ctx context.Context, arg repo.RejectDonationParams) (repo.ProjectDonation, error)
	MarkDonationPendingApproval(ctx context.Context, arg repo.MarkDonationPendingApprovalParams) (int64, error)
	CompleteDonationTransaction(ctx context.Context, donationID int64) (int64, error)
	InsertAuditLog(ctx context.Context, arg repo.InsertAuditLogParams) error
	ListDonationsByProject(ctx context.Context, arg repo.ListDonationsByProjectParams) ([]repo.ProjectDonation, error)
	ListDonationsByDonor(ctx context.Context, arg repo.ListDonationsByDonorParams) ([]repo.ProjectDonation, error)
	ListDonationsByStatus(ctx context.Context, arg repo.ListDonationsByStatusParams) ([]repo.ProjectDonation, error)
}

// Store is a Querier that can also run work in a database transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// NewStore adapts the repo layer to the donation store.
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

// Input carries a donation submission.
type Input struct {
	ProjectID     int64           `json:"project_id"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
	IsAnonymous   bool            `json:"is_anonymous"`
	PaymentMethod string          `json:"payment_method"`
}

// Service routes donation submissions and settles them on admin approval.
type Service struct {
	DB      Store
	Ledger  *ledger.Service
	Coupons *coupon.Service
	Events  *events.Bus
	Log     zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Route decides the initial status for a submission. Balance donations move
// money immediately and therefore wait for approval; gateway methods do the
// same once authenticated. Guests go through the generic pending state and
// are always anonymous.
func Route(method string, authenticated bool) (status string, forceAnonymous bool, err error) {
	switch strings.TrimSpace(strings.ToLower(method)) {
	case MethodBalance:
		if !authenticated {
			return "", false, common.NewAppError("UNAUTHORIZED", "balance donations require an account", 401, nil)
		}
		return repo.DonationStatusPendingApproval, false, nil
	case MethodCreditCard, MethodOther:
		if !authenticated {
			return repo.DonationStatusPending, true, nil
		}
		return repo.DonationStatusPendingApproval, false, nil
	case "":
		return repo.DonationStatusPending, true, nil
	default:
		return "", false, common.ValidationError("unsupported payment method", nil)
	}
}

// paymentReference builds the gateway reference stored on the donation.
func paymentReference(method string, now time.Time) string {
	switch method {
	case MethodBalance:
		return fmt.Sprintf("DON-BAL-%d", now.UnixMilli())
	case MethodCreditCard:
		return fmt.Sprintf("DON-CC-%d", now.UnixMilli())
	default:
		return fmt.Sprintf("DON-%d", now.UnixMilli())
	}
}

// Submit records a donation. For the balance method the donor's funds are
// debited in the same transaction that creates the donation row, with an
// atomic sufficient-funds guard. Authenticated donors whose donation lands
// in pending_approval get their incentive coupon minted immediately; the
// returned coupon is nil for everyone else.
func (s *Service) Submit(ctx context.Context, donorID *int64, in Input) (repo.ProjectDonation, *repo.Coupon, error) {
	if s == nil || s.DB == nil {
		return repo.ProjectDonation{}, nil, errors.New("donation service not configured")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return repo.ProjectDonation{}, nil, common.ValidationError("amount must be positive", nil)
	}
	if _, err := s.DB.GetProjectByID(ctx, in.ProjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProjectDonation{}, nil, common.NotFoundError("project not found", err)
		}
		return repo.ProjectDonation{}, nil, err
	}

	method := strings.TrimSpace(strings.ToLower(in.PaymentMethod))
	status, forceAnon, err := Route(method, donorID != nil)
	if err != nil {
		return repo.ProjectDonation{}, nil, err
	}

	var donor pgtype.Int8
	if donorID != nil {
		donor = pgtype.Int8{Int64: *donorID, Valid: true}
	}
	var message pgtype.Text
	if trimmed := strings.TrimSpace(in.Message); trimmed != "" {
		message = pgtype.Text{String: trimmed, Valid: true}
	}

	var donation repo.ProjectDonation
	err = s.DB.ExecTx(ctx, func(q Querier) error {
		if method == MethodBalance {
			rows, err := q.DebitUserBalance(ctx, repo.DebitUserBalanceParams{ID: *donorID, Amount: in.Amount})
			if err != nil {
				return err
			}
			if rows == 0 {
				s.count(method, "insufficient_balance")
				return common.ConflictError("INSUFFICIENT_BALANCE", "balance does not cover the donation", nil)
			}
		}
		var err error
		donation, err = q.CreateDonation(ctx, repo.CreateDonationParams{
			ProjectID:     in.ProjectID,
			DonorID:       donor,
			Amount:        in.Amount,
			Message:       message,
			IsAnonymous:   in.IsAnonymous || forceAnon,
			PaymentMethod: method,
			TransactionID: paymentReference(method, s.now()),
			Status:        status,
		})
		if err != nil {
			return err
		}
		_, err = q.CreateTransaction(ctx, repo.CreateTransactionParams{
			DonationID: pgtype.Int8{Int64: donation.ID, Valid: true},
			UserID:     donor,
			Type:       repo.TxnTypeDonation,
			Status:     repo.TxnStatusPending,
			Amount:     in.Amount,
			Currency:   "TRY",
			Provider:   method,
		})
		return err
	})
	if err != nil {
		return repo.ProjectDonation{}, nil, err
	}

	s.count(method, "created")
	s.emit(ctx, events.TopicDonationCreated, map[string]any{
		"donation_id": donation.ID,
		"project_id":  donation.ProjectID,
		"status":      donation.Status,
	})
	var minted *repo.Coupon
	if donorID != nil && donation.Status == repo.DonationStatusPendingApproval {
		minted = s.issueIncentive(ctx, donation)
	}
	return donation, minted, nil
}

// ConfirmPayment promotes the caller's own gateway donation from pending to
// pending_approval once the charge is confirmed.
func (s *Service) ConfirmPayment(ctx context.Context, userID, donationID int64) (repo.ProjectDonation, error) {
	rows, err := s.DB.MarkDonationPendingApproval(ctx, repo.MarkDonationPendingApprovalParams{ID: donationID, DonorID: userID})
	if err != nil {
		return repo.ProjectDonation{}, err
	}
	if rows == 0 {
		return repo.ProjectDonation{}, s.confirmConflict(ctx, userID, donationID)
	}
	return s.DB.GetDonationByID(ctx, donationID)
}

// confirmConflict explains a failed confirmation without revealing other
// accounts' donations.
func (s *Service) confirmConflict(ctx context.Context, userID, donationID int64) error {
	existing, err := s.DB.GetDonationByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("donation not found", err)
		}
		return err
	}
	if !existing.DonorID.Valid || existing.DonorID.Int64 != userID {
		return common.NotFoundError("donation not found", nil)
	}
	return common.ConflictError("INVALID_STATE", "donation is not awaiting payment", nil)
}

// Approve settles a donation: the status flip, the 30/70 ledger moves and
// the transaction completion are one database transaction.
func (s *Service) Approve(ctx context.Context, adminID, donationID int64) (repo.ProjectDonation, ledger.DonationSplit, error) {
	if s == nil || s.DB == nil {
		return repo.ProjectDonation{}, ledger.DonationSplit{}, errors.New("donation service not configured")
	}
	var donation repo.ProjectDonation
	var split ledger.DonationSplit
	err := s.DB.ExecTx(ctx, func(q Querier) error {
		var err error
		donation, err = q.ApproveDonation(ctx, repo.ApproveDonationParams{ID: donationID, ApprovedBy: adminID})
		if err != nil {
			return err
		}
		project, err := q.GetProjectByID(ctx, donation.ProjectID)
		if err != nil {
			return err
		}
		split, err = s.Ledger.SettleDonation(ctx, q, project.ID, project.OwnerID, donation.Amount)
		if err != nil {
			return err
		}
		if _, err := q.CompleteDonationTransaction(ctx, donation.ID); err != nil {
			return err
		}
		return q.InsertAuditLog(ctx, repo.InsertAuditLogParams{
			ActorID:  adminID,
			Action:   "donation.approve",
			Entity:   "donation",
			EntityID: donationEntityID(donation.ID),
			Detail:   auditDetail(donation, split),
		})
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			donation, err = s.approveConflict(ctx, donationID)
			return donation, ledger.DonationSplit{}, err
		}
		return repo.ProjectDonation{}, ledger.DonationSplit{}, err
	}

	s.count(donation.PaymentMethod, "approved")
	s.emit(ctx, events.TopicDonationApproved, map[string]any{
		"donation_id": donation.ID,
		"project_id":  donation.ProjectID,
		"platform":    split.Platform,
		"owner":       split.Owner,
	})
	return donation, split, nil
}

// approveConflict distinguishes an unknown donation from one already
// settled or still unpaid.
func (s *Service) approveConflict(ctx context.Context, donationID int64) (repo.ProjectDonation, error) {
	existing, err := s.DB.GetDonationByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProjectDonation{}, common.NotFoundError("donation not found", err)
		}
		return repo.ProjectDonation{}, err
	}
	switch existing.Status {
	case repo.DonationStatusCompleted:
		return repo.ProjectDonation{}, common.ConflictError("CONFLICT", "donation is already settled", nil)
	default:
		return repo.ProjectDonation{}, common.ConflictError("INVALID_STATE", "donation is not awaiting approval", nil)
	}
}

// Reject declines a donation. Balance donations are refunded in the same
// transaction since the funds were debited at submission.
func (s *Service) Reject(ctx context.Context, adminID, donationID int64) (repo.ProjectDonation, error) {
	var donation repo.ProjectDonation
	err := s.DB.ExecTx(ctx, func(q Querier) error {
		var err error
		donation, err = q.RejectDonation(ctx, repo.RejectDonationParams{ID: donationID, ApprovedBy: adminID})
		if err != nil {
			return err
		}
		if donation.PaymentMethod == MethodBalance && donation.DonorID.Valid {
			if err := q.CreditUserBalance(ctx, repo.CreditUserBalanceParams{ID: donation.DonorID.Int64, Amount: donation.Amount}); err != nil {
				return err
			}
		}
		return q.InsertAuditLog(ctx, repo.InsertAuditLogParams{
			ActorID:  adminID,
			Action:   "donation.reject",
			Entity:   "donation",
			EntityID: donationEntityID(donation.ID),
			Detail:   []byte(`{}`),
		})
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProjectDonation{}, common.ConflictError("INVALID_STATE", "donation cannot be rejected", nil)
		}
		return repo.ProjectDonation{}, err
	}
	s.count(donation.PaymentMethod, "rejected")
	s.emit(ctx, events.TopicDonationRejected, map[string]any{"donation_id": donation.ID})
	return donation, nil
}

// ListByProject returns settled donations for public display.
func (s *Service) ListByProject(ctx context.Context, projectID int64, limit, offset int32) ([]repo.ProjectDonation, error) {
	return s.DB.ListDonationsByProject(ctx, repo.ListDonationsByProjectParams{
		ProjectID: projectID,
		Limit:     limit,
		Offset:    offset,
	})
}

// ListByDonor returns all of the donor's own donations.
func (s *Service) ListByDonor(ctx context.Context, donorID int64, limit, offset int32) ([]repo.ProjectDonation, error) {
	return s.DB.ListDonationsByDonor(ctx, repo.ListDonationsByDonorParams{
		DonorID: donorID,
		Limit:   limit,
		Offset:  offset,
	})
}

// ListPendingApproval returns the admin settlement queue.
func (s *Service) ListPendingApproval(ctx context.Context, limit, offset int32) ([]repo.ProjectDonation, error) {
	return s.DB.ListDonationsByStatus(ctx, repo.ListDonationsByStatusParams{
		Status: repo.DonationStatusPendingApproval,
		Limit:  limit,
		Offset: offset,
	})
}

// issueIncentive mints the donor's thank-you coupon right after the
// donation commits. Failure never unwinds the donation.
func (s *Service) issueIncentive(ctx context.Context, donation repo.ProjectDonation) *repo.Coupon {
	if s.Coupons == nil || !donation.DonorID.Valid {
		return nil
	}
	minted, err := s.Coupons.IssueIncentive(ctx, donation.ProjectID, donation.DonorID.Int64)
	if err != nil {
		s.Log.Warn().Err(err).
			Int64("donation_id", donation.ID).
			Int64("project_id", donation.ProjectID).
			Msg("incentive coupon issuance failed")
		return nil
	}
	return minted
}

func (s *Service) emit(ctx context.Context, topic string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, payload); err != nil {
		s.Log.Warn().Err(err).Str("topic", topic).Msg("emit donation event")
	}
}

func (s *Service) count(method, result string) {
	if obs.DonationsTotal != nil {
		if method == "" {
			method = "none"
		}
		obs.DonationsTotal.WithLabelValues(method, result).Inc()
	}
}
