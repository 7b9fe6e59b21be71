// Package batch applies one status transition across many documents with
// per-item isolation: a locked or missing document fails alone, the rest of
// the batch proceeds.
package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/shared"
)

// ItemOutcome records what happened to one document in a batch.
type ItemOutcome struct {
	DocumentID uuid.UUID `json:"document_id"`
	OK         bool      `json:"ok"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Result aggregates a completed batch. Partial completion is the normal
// outcome, not an error.
type Result struct {
	Requested int           `json:"requested"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Items     []ItemOutcome `json:"items"`
}

type Service struct {
	docs   *documents.Service
	audit  *shared.AuditLogger
	logger *slog.Logger
}

func NewService(logger *slog.Logger, docs *documents.Service, audit *shared.AuditLogger) *Service {
	return &Service{docs: docs, audit: audit, logger: logger}
}

// Reclassify moves each document to targetStatus independently. Every item
// is attempted; failures carry the reason instead of aborting the batch.
func (s *Service) Reclassify(ctx context.Context, ids []uuid.UUID, targetStatus documents.Status, actor string) (Result, error) {
	if !documents.ValidStatus(targetStatus) {
		return Result{}, shared.ErrInvalidValue
	}
	if len(ids) == 0 {
		return Result{}, errors.New("batch: no document ids given")
	}
	result := Result{Requested: len(ids), Items: make([]ItemOutcome, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		doc, err := s.docs.Transition(ctx, id, targetStatus)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, ItemOutcome{DocumentID: id, Reason: reason(err)})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, ItemOutcome{DocumentID: id, OK: true, Status: string(doc.Status)})
	}
	s.logger.Info("batch reclassify",
		slog.String("target", string(targetStatus)),
		slog.Int("requested", result.Requested),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed))
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "batch.reclassify",
			Entity:   "document_batch",
			EntityID: string(targetStatus),
			Meta: map[string]any{
				"requested": result.Requested,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			},
		})
	}
	return result, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "not found"
	case errors.Is(err, shared.ErrDocumentLocked):
		return "document is posted and locked"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid transition"
	default:
		return err.Error()
	}
}
