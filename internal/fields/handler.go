package fields

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/platform/httpx"
)

type Handler struct {
	ledger          *Ledger
	extractor       *Extractor
	logger          *slog.Logger
	validate        *validator.Validate
	reviewThreshold float64
}

func NewHandler(logger *slog.Logger, ledger *Ledger, extractor *Extractor, reviewThreshold float64) *Handler {
	return &Handler{
		ledger:          ledger,
		extractor:       extractor,
		logger:          logger,
		validate:        validator.New(),
		reviewThreshold: reviewThreshold,
	}
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	list, err := h.extractor.Extract(r.Context(), id)
	if err != nil {
		h.logger.Error("extract fields", slog.String("document_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.listResponse(id, list))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	list, err := h.ledger.List(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.listResponse(id, list))
}

func (h *Handler) Correct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	name := Name(chi.URLParam(r, "name"))
	var req CorrectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", err.Error())
		return
	}
	field, err := h.ledger.Correct(r.Context(), id, name, req.Value, h.actor(r, req.Actor), req.Note, req.ExpectedVersion)
	if err != nil {
		h.logger.Warn("correct field", slog.String("document_id", id.String()), slog.String("field", string(name)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToFieldResponse(field, h.reviewThreshold))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	name := Name(chi.URLParam(r, "name"))
	var req VerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid JSON body")
		return
	}
	field, err := h.ledger.Verify(r.Context(), id, name, h.actor(r, req.Actor), req.ExpectedVersion)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToFieldResponse(field, h.reviewThreshold))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	history, err := h.ledger.History(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]HistoryResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, HistoryResponse{
			ID:        entry.ID,
			FieldName: string(entry.FieldName),
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			Actor:     entry.Actor,
			Note:      entry.Note,
			At:        entry.At,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) actor(r *http.Request, bodyActor string) string {
	if bodyActor != "" {
		return bodyActor
	}
	if header := r.Header.Get("X-Actor"); header != "" {
		return header
	}
	return "reviewer"
}

func (h *Handler) listResponse(id uuid.UUID, list []Field) ListResponse {
	out := ListResponse{
		DocumentID:          id.String(),
		AggregateConfidence: AggregateConfidence(list),
		Fields:              make([]FieldResponse, 0, len(list)),
	}
	for _, f := range list {
		out.Fields = append(out.Fields, ToFieldResponse(f, h.reviewThreshold))
	}
	return out
}
