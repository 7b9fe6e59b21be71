package entries

import "github.com/go-chi/chi/v5"

// MountDocumentRoutes attaches the document-scoped entry routes.
func (h *Handler) MountDocumentRoutes(r chi.Router) {
	r.Post("/{id}/entries", h.Generate)
	r.Get("/{id}/entries", h.ListByDocument)
}

// MountRoutes attaches the entry-scoped routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Post("/{id}/validate", h.Validate)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/reject", h.Reject)
}
