package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Store narrows the repo surface the audit endpoints need.
type Store interface {
	ListAuditLogs(ctx context.Context, arg repo.ListAuditLogsParams) ([]repo.AuditLog, error)
}

// Handler exposes the audit trail to administrators.
type Handler struct {
	Store Store
}

// List returns audit entries, newest first, optionally filtered by entity.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "audit store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	entries, err := h.Store.ListAuditLogs(r.Context(), repo.ListAuditLogsParams{
		Entity: strings.TrimSpace(r.URL.Query().Get("entity")),
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		entry := map[string]any{
			"id":         e.ID,
			"actor_id":   e.ActorID,
			"action":     e.Action,
			"entity":     e.Entity,
			"entity_id":  e.EntityID,
			"created_at": e.CreatedAt,
		}
		if len(e.Detail) > 0 {
			entry["detail"] = json.RawMessage(e.Detail)
		}
		out = append(out, entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}
