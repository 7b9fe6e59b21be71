package batch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/platform/httpx"
	"github.com/paperledger/paperledger/internal/shared"
)

// Enqueuer submits a batch to the background queue instead of running it
// inline. Implemented by the jobs client.
type Enqueuer interface {
	EnqueueReclassify(ctx context.Context, ids []uuid.UUID, target documents.Status, actor string) (string, error)
}

// ReclassifyRequest is the payload for a batch status transition. Async
// batches are queued and return 202 with the task id.
type ReclassifyRequest struct {
	DocumentIDs  []string `json:"document_ids" validate:"required,min=1,dive,uuid"`
	TargetStatus string   `json:"target_status" validate:"required"`
	Actor        string   `json:"actor"`
	Async        bool     `json:"async"`
}

type QueuedResponse struct {
	TaskID string `json:"task_id"`
	Queued int    `json:"queued"`
}

type Handler struct {
	service     *Service
	enqueuer    Enqueuer
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		service:     service,
		enqueuer:    enqueuer,
		idempotency: idempotency,
		logger:      logger,
		validate:    validator.New(),
	}
}

func (h *Handler) Reclassify(w http.ResponseWriter, r *http.Request) {
	var req ReclassifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid JSON body")
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "batch.reclassify"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "duplicate-request", "Duplicate Request", "batch with this idempotency key was already submitted")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", err.Error())
		return
	}
	target := documents.Status(req.TargetStatus)
	if !documents.ValidStatus(target) {
		httpx.Problem(w, http.StatusBadRequest, "invalid-value", "Invalid Value", "unknown target status "+req.TargetStatus)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid document id "+raw)
			return
		}
		ids = append(ids, id)
	}
	actor := h.actor(r, req.Actor)

	if req.Async && h.enqueuer != nil {
		taskID, err := h.enqueuer.EnqueueReclassify(r.Context(), ids, target, actor)
		if err != nil {
			h.logger.Error("enqueue batch reclassify", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, QueuedResponse{TaskID: taskID, Queued: len(ids)})
		return
	}

	result, err := h.service.Reclassify(r.Context(), ids, target, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
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
