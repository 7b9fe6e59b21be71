package fields

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/extract", h.Extract)
	r.Get("/{id}/fields", h.List)
	r.Get("/{id}/fields/history", h.History)
	r.Post("/{id}/fields/{name}/correct", h.Correct)
	r.Post("/{id}/fields/{name}/verify", h.Verify)
}
