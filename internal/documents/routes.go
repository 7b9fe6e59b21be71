package documents

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Register)
	r.Get("/{id}", h.Get)
}
