package classifier

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid document id")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	doc, err := h.service.Classify(r.Context(), id, force)
	if err != nil {
		h.logger.Error("classify document", slog.String("document_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, documents.ToResponse(doc))
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/classify", h.Classify)
}
