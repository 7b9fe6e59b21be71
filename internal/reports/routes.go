package reports

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{type:[A-Za-z_]+}", h.Generate)
	r.Get("/id/{id}", h.Read)
	r.Post("/id/{id}/refresh", h.Refresh)
	r.Post("/id/{id}/archive", h.Archive)
}
