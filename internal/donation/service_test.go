package donation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/coupon"
	"github.com/kodpazar/backend-api/internal/ledger"
	"github.com/kodpazar/backend-api/internal/repo"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// stubStore keeps donations, balances and transactions in memory and
// mimics the row-guard semantics of the real queries. ExecTx snapshots
// the state and restores it when the callback fails, so tests can assert
// that nothing leaks out of an aborted transaction.
type stubStore struct {
	project   repo.Project
	donations map[int64]repo.ProjectDonation
	nextID    int64
	balances  map[int64]decimal.Decimal
	credits   []repo.CreditUserBalanceParams
	received  []repo.AddProjectDonationReceivedParams
	txns      []repo.Transaction
	audits    []repo.InsertAuditLogParams
	coupons   []repo.Coupon
	commits   int
	rollbacks int
	failTxn   bool
}

func newStubStore() *stubStore {
	return &stubStore{
		project:   repo.Project{ID: 2, OwnerID: 9, Title: "Atlas", IsActive: true},
		donations: map[int64]repo.ProjectDonation{},
		balances:  map[int64]decimal.Decimal{},
	}
}

func (s *stubStore) snapshot() *stubStore {
	cp := *s
	cp.donations = make(map[int64]repo.ProjectDonation, len(s.donations))
	for k, v := range s.donations {
		cp.donations[k] = v
	}
	cp.balances = make(map[int64]decimal.Decimal, len(s.balances))
	for k, v := range s.balances {
		cp.balances[k] = v
	}
	cp.credits = append([]repo.CreditUserBalanceParams(nil), s.credits...)
	cp.received = append([]repo.AddProjectDonationReceivedParams(nil), s.received...)
	cp.txns = append([]repo.Transaction(nil), s.txns...)
	cp.audits = append([]repo.InsertAuditLogParams(nil), s.audits...)
	cp.coupons = append([]repo.Coupon(nil), s.coupons...)
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

func (s *stubStore) GetProjectByID(_ context.Context, id int64) (repo.Project, error) {
	if id != s.project.ID {
		return repo.Project{}, pgx.ErrNoRows
	}
	return s.project, nil
}

func (s *stubStore) GetDonationByID(_ context.Context, id int64) (repo.ProjectDonation, error) {
	d, ok := s.donations[id]
	if !ok {
		return repo.ProjectDonation{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *stubStore) CreateDonation(_ context.Context, arg repo.CreateDonationParams) (repo.ProjectDonation, error) {
	s.nextID++
	d := repo.ProjectDonation{
		ID:            s.nextID,
		ProjectID:     arg.ProjectID,
		DonorID:       arg.DonorID,
		Amount:        arg.Amount,
		Message:       arg.Message,
		IsAnonymous:   arg.IsAnonymous,
		PaymentMethod: arg.PaymentMethod,
		TransactionID: arg.TransactionID,
		Status:        arg.Status,
	}
	s.donations[d.ID] = d
	return d, nil
}

func (s *stubStore) CreateTransaction(_ context.Context, arg repo.CreateTransactionParams) (repo.Transaction, error) {
	if s.failTxn {
		return repo.Transaction{}, errors.New("insert transaction failed")
	}
	t := repo.Transaction{
		ID:         int64(len(s.txns) + 1),
		OrderID:    arg.OrderID,
		DonationID: arg.DonationID,
		UserID:     arg.UserID,
		Type:       arg.Type,
		Status:     arg.Status,
		Amount:     arg.Amount,
		Currency:   arg.Currency,
		Provider:   arg.Provider,
	}
	s.txns = append(s.txns, t)
	return t, nil
}

func (s *stubStore) DebitUserBalance(_ context.Context, arg repo.DebitUserBalanceParams) (int64, error) {
	bal, ok := s.balances[arg.ID]
	if !ok || bal.LessThan(arg.Amount) {
		return 0, nil
	}
	s.balances[arg.ID] = bal.Sub(arg.Amount)
	return 1, nil
}

func (s *stubStore) CreditUserBalance(_ context.Context, arg repo.CreditUserBalanceParams) error {
	s.credits = append(s.credits, arg)
	s.balances[arg.ID] = s.balances[arg.ID].Add(arg.Amount)
	return nil
}

func (s *stubStore) AddProjectDonationReceived(_ context.Context, arg repo.AddProjectDonationReceivedParams) error {
	s.received = append(s.received, arg)
	return nil
}

func (s *stubStore) ApproveDonation(_ context.Context, arg repo.ApproveDonationParams) (repo.ProjectDonation, error) {
	d, ok := s.donations[arg.ID]
	if !ok || d.Status != repo.DonationStatusPendingApproval {
		return repo.ProjectDonation{}, pgx.ErrNoRows
	}
	d.Status = repo.DonationStatusCompleted
	d.ApprovedBy = pgtype.Int8{Int64: arg.ApprovedBy, Valid: true}
	s.donations[arg.ID] = d
	return d, nil
}

func (s *stubStore) RejectDonation(_ context.Context, arg repo.RejectDonationParams) (repo.ProjectDonation, error) {
	d, ok := s.donations[arg.ID]
	if !ok || (d.Status != repo.DonationStatusPending && d.Status != repo.DonationStatusPendingApproval) {
		return repo.ProjectDonation{}, pgx.ErrNoRows
	}
	d.Status = repo.DonationStatusRejected
	d.ApprovedBy = pgtype.Int8{Int64: arg.ApprovedBy, Valid: true}
	s.donations[arg.ID] = d
	return d, nil
}

func (s *stubStore) MarkDonationPendingApproval(_ context.Context, arg repo.MarkDonationPendingApprovalParams) (int64, error) {
	d, ok := s.donations[arg.ID]
	if !ok || d.Status != repo.DonationStatusPending {
		return 0, nil
	}
	if !d.DonorID.Valid || d.DonorID.Int64 != arg.DonorID {
		return 0, nil
	}
	d.Status = repo.DonationStatusPendingApproval
	s.donations[arg.ID] = d
	return 1, nil
}

func (s *stubStore) CompleteDonationTransaction(_ context.Context, donationID int64) (int64, error) {
	var n int64
	for i, t := range s.txns {
		if t.DonationID.Valid && t.DonationID.Int64 == donationID && t.Type == repo.TxnTypeDonation && t.Status == repo.TxnStatusPending {
			s.txns[i].Status = repo.TxnStatusCompleted
			n++
		}
	}
	return n, nil
}

func (s *stubStore) InsertAuditLog(_ context.Context, arg repo.InsertAuditLogParams) error {
	s.audits = append(s.audits, arg)
	return nil
}

func (s *stubStore) ListDonationsByProject(_ context.Context, arg repo.ListDonationsByProjectParams) ([]repo.ProjectDonation, error) {
	var out []repo.ProjectDonation
	for _, d := range s.donations {
		if d.ProjectID == arg.ProjectID && d.Status == repo.DonationStatusCompleted {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubStore) ListDonationsByDonor(_ context.Context, arg repo.ListDonationsByDonorParams) ([]repo.ProjectDonation, error) {
	var out []repo.ProjectDonation
	for _, d := range s.donations {
		if d.DonorID.Valid && d.DonorID.Int64 == arg.DonorID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubStore) ListDonationsByStatus(_ context.Context, arg repo.ListDonationsByStatusParams) ([]repo.ProjectDonation, error) {
	var out []repo.ProjectDonation
	for _, d := range s.donations {
		if d.Status == arg.Status {
			out = append(out, d)
		}
	}
	return out, nil
}

// The coupon methods below let the same store back the incentive
// issuance path, so the donation total feeding the coupon percentage is
// computed from the donations the test actually submitted.

func (s *stubStore) GetActiveCouponByCode(context.Context, string) (repo.Coupon, error) {
	return repo.Coupon{}, pgx.ErrNoRows
}

func (s *stubStore) GetActiveIncentiveCoupon(context.Context, repo.GetActiveIncentiveCouponParams) (repo.Coupon, error) {
	return repo.Coupon{}, pgx.ErrNoRows
}

func (s *stubStore) CreateCoupon(_ context.Context, arg repo.CreateCouponParams) (repo.Coupon, error) {
	c := repo.Coupon{
		ID:            int64(len(s.coupons) + 1),
		Code:          arg.Code,
		DiscountType:  arg.DiscountType,
		DiscountValue: arg.DiscountValue,
		UsageLimit:    arg.UsageLimit,
		OneTimeUse:    arg.OneTimeUse,
		ProjectID:     arg.ProjectID,
		UserID:        arg.UserID,
		ExpiresAt:     arg.ExpiresAt,
		IsActive:      true,
	}
	s.coupons = append(s.coupons, c)
	return c, nil
}

func (s *stubStore) DeactivateCoupon(context.Context, int64) error { return nil }

func (s *stubStore) ListCouponsByUser(context.Context, int64) ([]repo.Coupon, error) {
	return nil, nil
}

func (s *stubStore) CountOrdersWithCoupon(context.Context, repo.CountOrdersWithCouponParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) TotalRecognizedDonations(_ context.Context, arg repo.TotalRecognizedDonationsParams) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range s.donations {
		if d.ProjectID != arg.ProjectID || !d.DonorID.Valid || d.DonorID.Int64 != arg.DonorID {
			continue
		}
		if d.Status == repo.DonationStatusCompleted || d.Status == repo.DonationStatusPendingApproval {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func newTestService(store *stubStore) *Service {
	return &Service{
		DB:     store,
		Ledger: &ledger.Service{PlatformAccountID: 1, PlatformCutPercent: dec("30")},
		Coupons: &coupon.Service{
			Q: store,
			Policy: coupon.IncentivePolicy{
				StepAmount:  dec("100"),
				StepPercent: dec("5"),
				MaxPercent:  dec("20"),
				TTL:         30 * 24 * time.Hour,
			},
		},
		Now: func() time.Time { return time.Unix(1756684800, 0) },
	}
}

func TestSubmitBalanceIssuesCouponImmediately(t *testing.T) {
	store := newStubStore()
	store.balances[7] = dec("500")
	svc := newTestService(store)
	donor := int64(7)

	donation, minted, err := svc.Submit(context.Background(), &donor, Input{
		ProjectID:     2,
		Amount:        dec("150"),
		PaymentMethod: "balance",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if donation.Status != repo.DonationStatusPendingApproval {
		t.Fatalf("status = %q, want pending_approval", donation.Status)
	}
	if !store.balances[7].Equal(dec("350")) {
		t.Fatalf("donor balance = %s, want 350", store.balances[7])
	}
	if !strings.HasPrefix(donation.TransactionID, "DON-BAL-") {
		t.Fatalf("payment reference = %q", donation.TransactionID)
	}
	// The coupon is promised as soon as the money is committed, before
	// any admin touches the donation. 150 donated at a 5%-per-100 policy
	// earns 5%.
	if minted == nil {
		t.Fatal("no coupon issued at submission")
	}
	if !minted.DiscountValue.Equal(dec("5")) {
		t.Fatalf("coupon percent = %s, want 5", minted.DiscountValue)
	}
	if !minted.OneTimeUse || !minted.UsageLimit.Valid || minted.UsageLimit.Int32 != 1 {
		t.Fatalf("coupon not single-use: %+v", minted)
	}
	if len(store.txns) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.txns))
	}
	txn := store.txns[0]
	if txn.Type != repo.TxnTypeDonation || txn.Status != repo.TxnStatusPending {
		t.Fatalf("transaction = %s/%s", txn.Type, txn.Status)
	}
	if !txn.UserID.Valid || txn.UserID.Int64 != 7 {
		t.Fatalf("transaction user = %+v, want donor 7", txn.UserID)
	}
}

func TestSubmitGuestCardDonation(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)

	donation, minted, err := svc.Submit(context.Background(), nil, Input{
		ProjectID:     2,
		Amount:        dec("80"),
		PaymentMethod: "credit_card",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if donation.Status != repo.DonationStatusPending {
		t.Fatalf("status = %q, want pending", donation.Status)
	}
	if !donation.IsAnonymous {
		t.Fatal("guest donation must be anonymous")
	}
	if minted != nil {
		t.Fatalf("guest received a coupon: %+v", minted)
	}
	if !strings.HasPrefix(donation.TransactionID, "DON-CC-") {
		t.Fatalf("payment reference = %q", donation.TransactionID)
	}
	// Guests still get a ledger transaction, just without an owner.
	if len(store.txns) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.txns))
	}
	if store.txns[0].UserID.Valid {
		t.Fatalf("guest transaction carries user %d", store.txns[0].UserID.Int64)
	}
}

func TestSubmitInsufficientBalanceLeavesNothingBehind(t *testing.T) {
	store := newStubStore()
	store.balances[7] = dec("10")
	svc := newTestService(store)
	donor := int64(7)

	_, _, err := svc.Submit(context.Background(), &donor, Input{
		ProjectID:     2,
		Amount:        dec("100"),
		PaymentMethod: "balance",
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INSUFFICIENT_BALANCE" {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}
	if len(store.donations) != 0 || len(store.txns) != 0 {
		t.Fatalf("aborted submission left rows: %d donations, %d transactions", len(store.donations), len(store.txns))
	}
	if !store.balances[7].Equal(dec("10")) {
		t.Fatalf("balance = %s, want 10", store.balances[7])
	}
	if store.commits != 0 || store.rollbacks != 1 {
		t.Fatalf("commits/rollbacks = %d/%d, want 0/1", store.commits, store.rollbacks)
	}
}

func TestSubmitRollsBackWhenTransactionInsertFails(t *testing.T) {
	store := newStubStore()
	store.balances[7] = dec("500")
	store.failTxn = true
	svc := newTestService(store)
	donor := int64(7)

	_, _, err := svc.Submit(context.Background(), &donor, Input{
		ProjectID:     2,
		Amount:        dec("100"),
		PaymentMethod: "balance",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.donations) != 0 {
		t.Fatalf("donation row survived the failed transaction insert")
	}
	if !store.balances[7].Equal(dec("500")) {
		t.Fatalf("balance = %s, want the debit undone", store.balances[7])
	}
}

func TestConfirmPaymentChecksOwnership(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	store.donations[5] = repo.ProjectDonation{
		ID:            5,
		ProjectID:     2,
		DonorID:       pgtype.Int8{Int64: 7, Valid: true},
		Amount:        dec("80"),
		PaymentMethod: "credit_card",
		Status:        repo.DonationStatusPending,
	}

	_, err := svc.ConfirmPayment(context.Background(), 9, 5)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != http.StatusNotFound {
		t.Fatalf("foreign confirm err = %v, want 404", err)
	}
	if store.donations[5].Status != repo.DonationStatusPending {
		t.Fatalf("foreign confirm moved status to %q", store.donations[5].Status)
	}

	confirmed, err := svc.ConfirmPayment(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("owner confirm: %v", err)
	}
	if confirmed.Status != repo.DonationStatusPendingApproval {
		t.Fatalf("status = %q, want pending_approval", confirmed.Status)
	}

	_, err = svc.ConfirmPayment(context.Background(), 7, 5)
	if !errors.As(err, &appErr) || appErr.HTTPStatus != http.StatusConflict {
		t.Fatalf("second confirm err = %v, want 409", err)
	}
}

func TestApproveSettlesOnce(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	store.donations[5] = repo.ProjectDonation{
		ID:            5,
		ProjectID:     2,
		DonorID:       pgtype.Int8{Int64: 7, Valid: true},
		Amount:        dec("200"),
		PaymentMethod: "balance",
		Status:        repo.DonationStatusPendingApproval,
	}
	store.txns = append(store.txns, repo.Transaction{
		ID:         1,
		DonationID: pgtype.Int8{Int64: 5, Valid: true},
		UserID:     pgtype.Int8{Int64: 7, Valid: true},
		Type:       repo.TxnTypeDonation,
		Status:     repo.TxnStatusPending,
		Amount:     dec("200"),
	})

	donation, split, err := svc.Approve(context.Background(), 42, 5)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if donation.Status != repo.DonationStatusCompleted {
		t.Fatalf("status = %q, want completed", donation.Status)
	}
	if !split.Platform.Equal(dec("60")) || !split.Owner.Equal(dec("140")) {
		t.Fatalf("split = %s/%s, want 60/140", split.Platform, split.Owner)
	}
	if len(store.credits) != 2 {
		t.Fatalf("credits = %d, want platform and owner", len(store.credits))
	}
	if len(store.received) != 1 || store.received[0].ID != 2 {
		t.Fatalf("donation_received bump = %+v, want project 2", store.received)
	}
	if store.txns[0].Status != repo.TxnStatusCompleted {
		t.Fatalf("transaction status = %q, want completed", store.txns[0].Status)
	}

	// A second approval of the same donation must not move money again.
	_, _, err = svc.Approve(context.Background(), 42, 5)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != http.StatusConflict {
		t.Fatalf("second approve err = %v, want 409", err)
	}
	if len(store.credits) != 2 || len(store.received) != 1 {
		t.Fatalf("second approve moved money: %d credits, %d bumps", len(store.credits), len(store.received))
	}
}

func TestRejectRefundsBalanceDonation(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	store.balances[7] = dec("0")
	store.donations[5] = repo.ProjectDonation{
		ID:            5,
		ProjectID:     2,
		DonorID:       pgtype.Int8{Int64: 7, Valid: true},
		Amount:        dec("120"),
		PaymentMethod: "balance",
		Status:        repo.DonationStatusPendingApproval,
	}

	donation, err := svc.Reject(context.Background(), 42, 5)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if donation.Status != repo.DonationStatusRejected {
		t.Fatalf("status = %q, want rejected", donation.Status)
	}
	if !store.balances[7].Equal(dec("120")) {
		t.Fatalf("refunded balance = %s, want 120", store.balances[7])
	}
}

func TestPaymentReference(t *testing.T) {
	now := time.UnixMilli(1756684800000)
	cases := []struct {
		method string
		want   string
	}{
		{MethodBalance, "DON-BAL-1756684800000"},
		{MethodCreditCard, "DON-CC-1756684800000"},
		{MethodOther, "DON-1756684800000"},
		{"", "DON-1756684800000"},
	}
	for _, tc := range cases {
		if got := paymentReference(tc.method, now); got != tc.want {
			t.Fatalf("paymentReference(%q) = %q, want %q", tc.method, got, tc.want)
		}
	}
}

func TestRoute(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		authed     bool
		wantStatus string
		wantAnon   bool
		wantErr    int
	}{
		{"balance authed", "balance", true, repo.DonationStatusPendingApproval, false, 0},
		{"balance guest", "balance", false, "", false, http.StatusUnauthorized},
		{"card authed", "credit_card", true, repo.DonationStatusPendingApproval, false, 0},
		{"card guest", "credit_card", false, repo.DonationStatusPending, true, 0},
		{"other authed", "other", true, repo.DonationStatusPendingApproval, false, 0},
		{"no method guest", "", false, repo.DonationStatusPending, true, 0},
		{"no method authed", "", true, repo.DonationStatusPending, true, 0},
		{"unknown method", "bitcoin", true, "", false, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, anon, err := Route(tc.method, tc.authed)
			if tc.wantErr != 0 {
				var appErr *common.AppError
				if !errors.As(err, &appErr) || appErr.HTTPStatus != tc.wantErr {
					t.Fatalf("err = %v, want status %d", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tc.wantStatus {
				t.Fatalf("status = %q, want %q", status, tc.wantStatus)
			}
			if anon != tc.wantAnon {
				t.Fatalf("anonymous = %v, want %v", anon, tc.wantAnon)
			}
		})
	}
}

func TestDonationViewHidesAnonymousDonor(t *testing.T) {
	d := repo.ProjectDonation{ID: 1, ProjectID: 2, IsAnonymous: true}
	d.DonorID.Int64 = 7
	d.DonorID.Valid = true

	public := donationView(d, false)
	if _, ok := public["donor_id"]; ok {
		t.Fatal("anonymous donor leaked on public view")
	}
	admin := donationView(d, true)
	if admin["donor_id"] != int64(7) {
		t.Fatalf("admin view donor = %v, want 7", admin["donor_id"])
	}
}
