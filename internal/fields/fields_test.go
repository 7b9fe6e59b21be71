package fields

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/shared"
)

// In-memory fakes shared by the ledger and extractor tests.

type memoryDocRepo struct {
	docs map[uuid.UUID]documents.Document
}

func newMemoryDocRepo() *memoryDocRepo {
	return &memoryDocRepo{docs: make(map[uuid.UUID]documents.Document)}
}

func (r *memoryDocRepo) Create(ctx context.Context, doc documents.Document) (documents.Document, error) {
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *memoryDocRepo) Get(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return documents.Document{}, shared.ErrNotFound
	}
	return doc, nil
}

func (r *memoryDocRepo) ListByStatus(ctx context.Context, status documents.Status) ([]documents.Document, error) {
	var out []documents.Document
	for _, doc := range r.docs {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memoryDocRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to documents.Status) error {
	doc, ok := r.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	if doc.Status != from {
		return shared.ErrInvalidTransition
	}
	doc.Status = to
	r.docs[id] = doc
	return nil
}

func (r *memoryDocRepo) SetClassification(ctx context.Context, id uuid.UUID, docType documents.DocumentType, confidence float64, warnings []string, from, to documents.Status) error {
	doc, ok := r.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	doc.Status = to
	doc.DocumentType = &docType
	doc.AIConfidenceScore = confidence
	doc.AIWarnings = append(doc.AIWarnings, warnings...)
	r.docs[id] = doc
	return nil
}

func (r *memoryDocRepo) SetUnrecognized(ctx context.Context, id uuid.UUID, reason string, warnings []string, from documents.Status) error {
	doc, ok := r.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	doc.Status = documents.StatusUnrecognized
	doc.UnrecognizedReason = &reason
	doc.AIWarnings = append(doc.AIWarnings, warnings...)
	r.docs[id] = doc
	return nil
}

func (r *memoryDocRepo) AppendWarnings(ctx context.Context, id uuid.UUID, warnings []string) error {
	doc, ok := r.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	doc.AIWarnings = append(doc.AIWarnings, warnings...)
	r.docs[id] = doc
	return nil
}

type memoryFieldRepo struct {
	fields  map[uuid.UUID]Field
	history []HistoryEntry
}

func newMemoryFieldRepo() *memoryFieldRepo {
	return &memoryFieldRepo{fields: make(map[uuid.UUID]Field)}
}

func (r *memoryFieldRepo) InsertFields(ctx context.Context, list []Field) error {
	for _, f := range list {
		exists := false
		for _, have := range r.fields {
			if have.DocumentID == f.DocumentID && have.Name == f.Name {
				exists = true
				break
			}
		}
		if !exists {
			r.fields[f.ID] = f
		}
	}
	return nil
}

func (r *memoryFieldRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	var out []Field
	for _, f := range r.fields {
		if f.DocumentID == documentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryFieldRepo) GetByName(ctx context.Context, documentID uuid.UUID, name Name) (Field, error) {
	for _, f := range r.fields {
		if f.DocumentID == documentID && f.Name == name {
			return f, nil
		}
	}
	return Field{}, shared.ErrNotFound
}

func (r *memoryFieldRepo) ListHistory(ctx context.Context, documentID uuid.UUID) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range r.history {
		if h.DocumentID == documentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memoryFieldRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryFieldTx{repo: r})
}

type memoryFieldTx struct {
	repo *memoryFieldRepo
}

func (tx *memoryFieldTx) GetByNameForUpdate(ctx context.Context, documentID uuid.UUID, name Name) (Field, error) {
	return tx.repo.GetByName(ctx, documentID, name)
}

func (tx *memoryFieldTx) UpdateField(ctx context.Context, fieldID uuid.UUID, correctedValue *string, verified bool, expectedVersion int64) error {
	f, ok := tx.repo.fields[fieldID]
	if !ok {
		return shared.ErrNotFound
	}
	if f.Version != expectedVersion {
		return &shared.ConflictError{Entity: "field", ExpectedVersion: expectedVersion, CurrentVersion: f.Version}
	}
	if correctedValue != nil {
		f.CorrectedValue = correctedValue
	}
	f.IsVerified = verified
	f.Version++
	tx.repo.fields[fieldID] = f
	return nil
}

func (tx *memoryFieldTx) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	tx.repo.history = append(tx.repo.history, entry)
	return nil
}
