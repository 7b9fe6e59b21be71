package entries

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
	"github.com/paperledger/paperledger/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	docID, ok := h.pathID(w, r, "invalid document id")
	if !ok {
		return
	}
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid JSON body")
		return
	}
	entry, err := h.service.Generate(r.Context(), GenerateInput{
		DocumentID:          docID,
		Actor:               h.actor(r, req.Actor),
		AcceptLowConfidence: req.AcceptLowConfidence,
		Memo:                req.Memo,
	})
	if err != nil {
		h.logger.Warn("generate entry", slog.String("document_id", docID.String()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToEntryResponse(entry))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "invalid entry id")
	if !ok {
		return
	}
	entry, err := h.service.Get(r.Context(), entryID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToEntryResponse(entry))
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "invalid entry id")
	if !ok {
		return
	}
	entry, err := h.service.Validate(r.Context(), entryID)
	if err != nil {
		h.logger.Warn("validate entry", slog.String("entry_id", entryID.String()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToEntryResponse(entry))
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "invalid entry id")
	if !ok {
		return
	}
	entry, err := h.service.Post(r.Context(), entryID, h.actor(r, ""))
	if err != nil {
		h.logger.Warn("post entry", slog.String("entry_id", entryID.String()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToEntryResponse(entry))
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "invalid entry id")
	if !ok {
		return
	}
	var req RejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", err.Error())
		return
	}
	entry, err := h.service.Reject(r.Context(), entryID, h.actor(r, req.Actor), req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToEntryResponse(entry))
}

func (h *Handler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := h.pathID(w, r, "invalid document id")
	if !ok {
		return
	}
	list, err := h.service.repo.ListByDocument(r.Context(), docID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]EntryResponse, 0, len(list))
	for _, entry := range list {
		out = append(out, ToEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// respondError handles accounting-specific errors before falling through to
// the shared mapping. Validation failures render the full rule list so the
// client sees every violation at once.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if v, ok := acctshared.AsValidation(err); ok {
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ProblemDetail{
			Type:   "entry-validation",
			Title:  "Entry Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: "one or more validation rules were violated",
			Rules:  v.Rules,
		})
		return
	}
	switch {
	case errors.Is(err, acctshared.ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "not-found", "Not Found", err.Error())
	case errors.Is(err, acctshared.ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "invalid-status", "Invalid Entry Status", err.Error())
	case errors.Is(err, acctshared.ErrMappingNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "mapping-missing", "Account Mapping Missing", err.Error())
	case errors.Is(err, acctshared.ErrFieldsUnverified):
		httpx.Problem(w, http.StatusUnprocessableEntity, "fields-unverified", "Fields Not Verified", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, detail string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", detail)
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
