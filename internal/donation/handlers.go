package donation

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Handler wires donation endpoints. Submission works with or without an
// authenticated caller; the service decides the routing.
type Handler struct {
	Svc *Service
}

// Submit records a donation for a project.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	var donorID *int64
	if raw, ok := common.UserID(r.Context()); ok && raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			donorID = &id
		}
	}
	donation, minted, err := h.Svc.Submit(r.Context(), donorID, payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view := donationView(donation, true)
	if minted != nil {
		view["discount_coupon"] = map[string]any{
			"code":     minted.Code,
			"discount": minted.DiscountValue,
		}
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// ConfirmPayment promotes the caller's own gateway donation once its
// charge succeeds.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	donationID, err := strconv.ParseInt(chi.URLParam(r, "donationID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid donation id", nil)
		return
	}
	donation, err := h.Svc.ConfirmPayment(r.Context(), userID, donationID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": donationView(donation, true)})
}

// ListByProject returns settled donations for the project page.
func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid project id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	donations, err := h.Svc.ListByProject(r.Context(), projectID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(donations))
	for _, d := range donations {
		out = append(out, donationView(d, false))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// ListMine returns the caller's own donations across all projects.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	donorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	donations, err := h.Svc.ListByDonor(r.Context(), donorID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(donations))
	for _, d := range donations {
		out = append(out, donationView(d, true))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// AdminQueue lists donations awaiting settlement.
func (h *Handler) AdminQueue(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	donations, err := h.Svc.ListPendingApproval(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(donations))
	for _, d := range donations {
		out = append(out, donationView(d, true))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// AdminApprove settles a donation and reports the resulting split.
func (h *Handler) AdminApprove(w http.ResponseWriter, r *http.Request) {
	adminID, donationID, ok := h.decisionIDs(w, r)
	if !ok {
		return
	}
	donation, split, err := h.Svc.Approve(r.Context(), adminID, donationID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view := donationView(donation, true)
	view["admin_commission"] = split.Platform
	view["project_owner_amount"] = split.Owner
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AdminReject declines a donation, refunding balance donors.
func (h *Handler) AdminReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Svc.Reject)
}

// decisionIDs extracts the acting admin and target donation from the request.
func (h *Handler) decisionIDs(w http.ResponseWriter, r *http.Request) (adminID, donationID int64, ok bool) {
	raw, has := common.UserID(r.Context())
	if !has || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return 0, 0, false
	}
	adminID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return 0, 0, false
	}
	donationID, err = strconv.ParseInt(chi.URLParam(r, "donationID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid donation id", nil)
		return 0, 0, false
	}
	return adminID, donationID, true
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID, donationID int64) (repo.ProjectDonation, error)) {
	adminID, donationID, ok := h.decisionIDs(w, r)
	if !ok {
		return
	}
	donation, err := fn(r.Context(), adminID, donationID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": donationView(donation, true)})
}

// donationView shapes a donation for output. Anonymous donors stay hidden
// on public surfaces regardless of stored identity.
func donationView(d repo.ProjectDonation, includeDonor bool) map[string]any {
	out := map[string]any{
		"id":         d.ID,
		"project_id": d.ProjectID,
		"amount":     d.Amount,
		"status":     d.Status,
		"anonymous":  d.IsAnonymous,
		"created_at": d.CreatedAt,
	}
	if d.Message.Valid {
		out["message"] = d.Message.String
	}
	if includeDonor {
		out["payment_method"] = d.PaymentMethod
		out["transaction_id"] = d.TransactionID
		if d.DonorID.Valid {
			out["donor_id"] = d.DonorID.Int64
		}
	} else if !d.IsAnonymous && d.DonorID.Valid {
		out["donor_id"] = d.DonorID.Int64
	}
	return out
}
