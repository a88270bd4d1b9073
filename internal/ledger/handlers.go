package ledger

import (
	"net/http"
	"strconv"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Handler serves the caller's transaction history.
type Handler struct {
	Q *repo.Queries
}

// ListMine returns the caller's ledger entries, newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
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
	page, perPage := common.ParsePagination(r, 20)
	txns, err := h.Q.ListTransactionsByUser(r.Context(), repo.ListTransactionsByUserParams{
		UserID: userID,
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(txns))
	for _, t := range txns {
		entry := map[string]any{
			"id":         t.ID,
			"type":       t.Type,
			"status":     t.Status,
			"amount":     t.Amount,
			"currency":   t.Currency,
			"provider":   t.Provider,
			"created_at": t.CreatedAt,
		}
		if t.OrderID.Valid {
			entry["order_id"] = t.OrderID.Int64
		}
		if t.DonationID.Valid {
			entry["donation_id"] = t.DonationID.Int64
		}
		if t.ProviderTxnID.Valid {
			entry["provider_txn_id"] = t.ProviderTxnID.String
		}
		out = append(out, entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}
