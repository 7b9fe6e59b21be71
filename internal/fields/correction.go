package fields

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/shared"
)

// Ledger is the correction ledger over extracted fields. Corrections and
// verifications serialise per field through an optimistic version check;
// history is append-only.
type Ledger struct {
	docs *documents.Service
	repo Repository
	now  func() time.Time
}

func NewLedger(docs *documents.Service, repo Repository) *Ledger {
	return &Ledger{docs: docs, repo: repo, now: time.Now}
}

func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Correct writes a human correction. The correction is an implicit
// verification: the field ends verified with review cleared, and one history
// entry records the change. expectedVersion of zero means "the version read
// inside this call"; a non-zero stale value fails with a conflict so the
// caller re-fetches instead of silently overwriting a concurrent edit.
func (l *Ledger) Correct(ctx context.Context, documentID uuid.UUID, name Name, newValue, actor string, note *string, expectedVersion int64) (Field, error) {
	doc, err := l.docs.Get(ctx, documentID)
	if err != nil {
		return Field{}, err
	}
	if doc.Status == documents.StatusPosted {
		return Field{}, shared.ErrDocumentLocked
	}
	if err := ValidateValue(name, newValue); err != nil {
		return Field{}, err
	}
	if actor == "" {
		return Field{}, fmt.Errorf("fields: actor required")
	}

	err = l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		field, err := tx.GetByNameForUpdate(ctx, documentID, name)
		if err != nil {
			return err
		}
		version := expectedVersion
		if version == 0 {
			version = field.Version
		}
		oldValue := field.FinalValue()
		if err := tx.UpdateField(ctx, field.ID, &newValue, true, version); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			DocumentID: documentID,
			FieldID:    field.ID,
			FieldName:  name,
			OldValue:   oldValue,
			NewValue:   newValue,
			Actor:      actor,
			Note:       note,
			At:         l.now(),
		})
	})
	if err != nil {
		return Field{}, err
	}
	return l.repo.GetByName(ctx, documentID, name)
}

// Verify accepts the extracted value as-is: is_verified becomes true, values
// stay untouched, and no history entry is written.
func (l *Ledger) Verify(ctx context.Context, documentID uuid.UUID, name Name, actor string, expectedVersion int64) (Field, error) {
	doc, err := l.docs.Get(ctx, documentID)
	if err != nil {
		return Field{}, err
	}
	if doc.Status == documents.StatusPosted {
		return Field{}, shared.ErrDocumentLocked
	}
	if actor == "" {
		return Field{}, fmt.Errorf("fields: actor required")
	}

	err = l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		field, err := tx.GetByNameForUpdate(ctx, documentID, name)
		if err != nil {
			return err
		}
		version := expectedVersion
		if version == 0 {
			version = field.Version
		}
		return tx.UpdateField(ctx, field.ID, nil, true, version)
	})
	if err != nil {
		return Field{}, err
	}
	return l.repo.GetByName(ctx, documentID, name)
}

// List returns the document's fields.
func (l *Ledger) List(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	if _, err := l.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return l.repo.ListByDocument(ctx, documentID)
}

// History returns the append-only correction trail for the document.
func (l *Ledger) History(ctx context.Context, documentID uuid.UUID) ([]HistoryEntry, error) {
	if _, err := l.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return l.repo.ListHistory(ctx, documentID)
}
