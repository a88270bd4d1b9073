package project

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/repo"
)

// Handler serves the public project catalog.
type Handler struct {
	Q *repo.Queries
}

// List returns active projects, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	projects, err := h.Q.ListActiveProjects(r.Context(), repo.ListActiveProjectsParams{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		out = append(out, view(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(out)},
	})
}

// Detail returns a single active project by slug.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "slug is required", nil)
		return
	}
	p, err := h.Q.GetProjectBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "project not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view(p)})
}

func view(p repo.Project) map[string]any {
	effective := p.Price
	if p.DiscountPrice.Valid {
		effective = p.DiscountPrice.Decimal
	}
	out := map[string]any{
		"id":                p.ID,
		"owner_id":          p.OwnerID,
		"title":             p.Title,
		"slug":              p.Slug,
		"description":       p.Description,
		"price":             p.Price,
		"effective_price":   effective,
		"donation_received": p.DonationReceived,
		"created_at":        p.CreatedAt,
	}
	if p.DiscountPrice.Valid {
		out["discount_price"] = p.DiscountPrice.Decimal
	}
	return out
}
