package events

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// AdminHandler lets operators inspect the persisted event stream.
type AdminHandler struct {
	Q *repo.Queries
}

// List returns recorded events, newest first, optionally filtered by topic.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic != "" && !knownTopic(topic) {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown topic", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	entries, err := h.Q.ListDomainEvents(r.Context(), repo.ListDomainEventsParams{
		Topic:  topic,
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":         e.ID,
			"topic":      e.Topic,
			"payload":    json.RawMessage(e.Payload),
			"created_at": e.CreatedAt,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

func knownTopic(topic string) bool {
	for _, t := range DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
