package fields

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/inference"
	"github.com/paperledger/paperledger/internal/shared"
)

// ManualEntryWarning is appended to a document when extraction fails and the
// fields must be keyed in by hand.
const ManualEntryWarning = "field extraction failed; manual field entry required"

// Extractor runs the external extraction service for classified documents and
// persists one field per expected name found in the response.
type Extractor struct {
	docs    *documents.Service
	docRepo documents.Repository
	repo    Repository
	client  inference.Client
	logger  *slog.Logger
}

func NewExtractor(docs *documents.Service, docRepo documents.Repository, repo Repository, client inference.Client, logger *slog.Logger) *Extractor {
	return &Extractor{docs: docs, docRepo: docRepo, repo: repo, client: client, logger: logger}
}

// Extract produces ExtractedField rows for the document. Confidence and
// bounding boxes are recorded verbatim from the inference response; boxes stay
// in the coordinate space of the original image. A failed call never reverts
// the classification: the document keeps its type, gains a manual-entry
// warning, and the error is surfaced.
func (e *Extractor) Extract(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	doc, err := e.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != documents.StatusCategorized && doc.Status != documents.StatusPendingReview {
		return nil, fmt.Errorf("fields: %w: extraction requires CATEGORIZED or PENDING_REVIEW, document is %s", shared.ErrInvalidTransition, doc.Status)
	}
	if doc.DocumentType == nil {
		return nil, fmt.Errorf("fields: %w: document has no resolved type", shared.ErrInvalidTransition)
	}

	result, err := e.client.Extract(ctx, inference.ExtractRequest{
		DocumentID:   documentID.String(),
		ContentRef:   doc.ContentRef,
		DocumentType: string(*doc.DocumentType),
	})
	if err != nil {
		if warnErr := e.docRepo.AppendWarnings(ctx, documentID, []string{ManualEntryWarning}); warnErr != nil {
			e.logger.Error("append extraction warning", slog.String("document_id", documentID.String()), slog.Any("error", warnErr))
		}
		return nil, err
	}

	expected := make(map[Name]bool, len(ExpectedFields(*doc.DocumentType)))
	for _, name := range ExpectedFields(*doc.DocumentType) {
		expected[name] = true
	}

	var list []Field
	for _, item := range result.Fields {
		name := Name(item.FieldName)
		if !expected[name] {
			e.logger.Warn("extraction returned field outside vocabulary",
				slog.String("document_id", documentID.String()),
				slog.String("field", item.FieldName))
			continue
		}
		list = append(list, Field{
			ID:             uuid.New(),
			DocumentID:     documentID,
			Name:           name,
			ExtractedValue: item.Value,
			Confidence:     clampConfidence(item.Confidence),
			BoundingBox: BoundingBox{
				X:      item.BoundingBox[0],
				Y:      item.BoundingBox[1],
				Width:  item.BoundingBox[2],
				Height: item.BoundingBox[3],
			},
			Version: 1,
		})
	}

	if err := e.repo.InsertFields(ctx, list); err != nil {
		return nil, err
	}
	if len(result.Warnings) > 0 {
		if err := e.docRepo.AppendWarnings(ctx, documentID, result.Warnings); err != nil {
			e.logger.Error("append extraction warnings", slog.String("document_id", documentID.String()), slog.Any("error", err))
		}
	}
	return e.repo.ListByDocument(ctx, documentID)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
