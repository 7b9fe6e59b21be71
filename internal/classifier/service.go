// Package classifier routes uploaded documents through the external
// classification service and records the outcome on the document.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/inference"
	"github.com/paperledger/paperledger/internal/shared"
)

const (
	ReasonLowConfidence   = "confidence below recognition floor"
	ReasonUnsupportedType = "unsupported document type"
	ReasonServiceFailure  = "classification service unavailable"
)

// Config carries the confidence thresholds for routing.
type Config struct {
	// ReviewThreshold is the confidence under which a document needs human review.
	ReviewThreshold float64
	// UnrecognizedFloor is the hard floor under which classification is rejected.
	UnrecognizedFloor float64
}

type Service struct {
	docs   *documents.Service
	repo   documents.Repository
	client inference.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(docs *documents.Service, repo documents.Repository, client inference.Client, cfg Config, logger *slog.Logger) *Service {
	return &Service{docs: docs, repo: repo, client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Classify runs the external classification once for the document. The call is
// idempotent per document: an already-classified document is returned untouched
// unless force is set. All failure causes, including service exhaustion, are
// recorded on the document as UNRECOGNIZED with a reason, matching the rule
// that a classification failure is recovered by re-submission, not by retry.
func (s *Service) Classify(ctx context.Context, id uuid.UUID, force bool) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status == documents.StatusPosted {
		return documents.Document{}, shared.ErrDocumentLocked
	}
	if doc.Classified() && !force {
		return doc, nil
	}

	from := doc.Status
	if from == documents.StatusUploaded {
		if err := s.repo.CompareAndSwapStatus(ctx, id, documents.StatusUploaded, documents.StatusClassifying); err != nil {
			return documents.Document{}, err
		}
		from = documents.StatusClassifying
	}

	result, err := s.client.Classify(ctx, inference.ClassifyRequest{
		DocumentID: id.String(),
		ContentRef: doc.ContentRef,
	})
	if err != nil {
		s.logger.Warn("classification call failed", slog.String("document_id", id.String()), slog.Any("error", err))
		return s.markUnrecognized(ctx, id, from, ReasonServiceFailure, []string{err.Error()})
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	docType := documents.DocumentType(result.DocumentType)
	switch {
	case !documents.KnownType(docType):
		return s.markUnrecognized(ctx, id, from, ReasonUnsupportedType, append(warnings, fmt.Sprintf("service returned type %q", result.DocumentType)))
	case result.Confidence < s.cfg.UnrecognizedFloor:
		return s.markUnrecognized(ctx, id, from, ReasonLowConfidence, append(warnings, fmt.Sprintf("confidence %.2f below floor %.2f", result.Confidence, s.cfg.UnrecognizedFloor)))
	}

	target := documents.StatusPendingReview
	if result.Confidence >= s.cfg.ReviewThreshold {
		target = documents.StatusCategorized
	}
	if err := s.repo.SetClassification(ctx, id, docType, result.Confidence, warnings, from, target); err != nil {
		return documents.Document{}, err
	}
	return s.docs.Get(ctx, id)
}

func (s *Service) markUnrecognized(ctx context.Context, id uuid.UUID, from documents.Status, reason string, warnings []string) (documents.Document, error) {
	if err := s.repo.SetUnrecognized(ctx, id, reason, warnings, from); err != nil {
		// Losing the race to another transition is surfaced, never papered over.
		if errors.Is(err, shared.ErrInvalidTransition) {
			return documents.Document{}, err
		}
		return documents.Document{}, err
	}
	return s.docs.Get(ctx, id)
}
