package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/observability"
	"github.com/paperledger/paperledger/internal/shared"
)

type Service struct {
	repo    Repository
	metrics *observability.Metrics
	now     func() time.Time
}

func NewService(repo Repository, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, metrics: metrics, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates document metadata in UPLOADED.
func (s *Service) Register(ctx context.Context, originalFilename, contentRef string) (Document, error) {
	if originalFilename == "" {
		return Document{}, errors.New("documents: original filename required")
	}
	doc := Document{
		ID:               uuid.New(),
		OriginalFilename: originalFilename,
		ContentRef:       contentRef,
		Status:           StatusUploaded,
		AIWarnings:       []string{},
	}
	return s.repo.Create(ctx, doc)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Document, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("documents: %w: unknown status %q", shared.ErrInvalidTransition, status)
	}
	return s.repo.ListByStatus(ctx, status)
}

// Transition advances a document through the status table with a
// compare-and-swap on the stored status.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (Document, error) {
	if !ValidStatus(to) {
		return Document{}, fmt.Errorf("documents: %w: unknown status %q", shared.ErrInvalidTransition, to)
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Status == StatusPosted {
		return Document{}, shared.ErrDocumentLocked
	}
	if !CanTransition(doc.Status, to) {
		return Document{}, fmt.Errorf("documents: %w: %s -> %s", shared.ErrInvalidTransition, doc.Status, to)
	}
	if err := s.repo.CompareAndSwapStatus(ctx, id, doc.Status, to); err != nil {
		return Document{}, err
	}
	s.metrics.ObserveTransition(string(to))
	doc.Status = to
	return doc, nil
}
