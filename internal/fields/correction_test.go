package fields

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/shared"
)

func seedDocument(t *testing.T, repo *memoryDocRepo, status documents.Status, docType documents.DocumentType) uuid.UUID {
	t.Helper()
	id := uuid.New()
	repo.docs[id] = documents.Document{
		ID:               id,
		OriginalFilename: "scan.pdf",
		ContentRef:       "blob://scan",
		Status:           status,
		DocumentType:     &docType,
	}
	return id
}

func seedField(repo *memoryFieldRepo, documentID uuid.UUID, name Name, value string, confidence float64) Field {
	f := Field{
		ID:             uuid.New(),
		DocumentID:     documentID,
		Name:           name,
		ExtractedValue: value,
		Confidence:     confidence,
		Version:        1,
	}
	repo.fields[f.ID] = f
	return f
}

func TestCorrectReplacesValueAndVerifies(t *testing.T) {
	docRepo := newMemoryDocRepo()
	fieldRepo := newMemoryFieldRepo()
	ledger := NewLedger(documents.NewService(docRepo, nil), fieldRepo)
	ctx := context.Background()

	docID := seedDocument(t, docRepo, documents.StatusPendingReview, documents.TypeReceipt)
	// OCR misread a thousands separator; the stored extraction is not numeric.
	seedField(fieldRepo, docID, NameTotalAmount, "1,250", 0.42)

	field, err := ledger.Correct(ctx, docID, NameTotalAmount, "1250.00", "alice", nil, 0)
	require.NoError(t, err)
	require.Equal(t, "1250.00", field.FinalValue())
	require.Equal(t, "1,250", field.ExtractedValue, "extracted value must be preserved")
	require.True(t, field.IsVerified)
	require.Equal(t, int64(2), field.Version)

	history, err := ledger.History(ctx, docID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "1,250", history[0].OldValue)
	require.Equal(t, "1250.00", history[0].NewValue)
	require.Equal(t, "alice", history[0].Actor)
}

func TestCorrectRejectsInvalidShape(t *testing.T) {
	docRepo := newMemoryDocRepo()
	fieldRepo := newMemoryFieldRepo()
	ledger := NewLedger(documents.NewService(docRepo, nil), fieldRepo)
	ctx := context.Background()

	docID := seedDocument(t, docRepo, documents.StatusPendingReview, documents.TypeReceipt)
	seedField(fieldRepo, docID, NameTotalAmount, "1,250", 0.42)
	seedField(fieldRepo, docID, NameReceiptDate, "2026-13-45", 0.51)

	_, err := ledger.Correct(ctx, docID, NameTotalAmount, "abc", "alice", nil, 0)
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = ledger.Correct(ctx, docID, NameReceiptDate, "31/01/2026", "alice", nil, 0)
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	// The failed writes must leave no history behind.
	history, err := ledger.History(ctx, docID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCorrectStaleVersionConflicts(t *testing.T) {
	docRepo := newMemoryDocRepo()
	fieldRepo := newMemoryFieldRepo()
	ledger := NewLedger(documents.NewService(docRepo, nil), fieldRepo)
	ctx := context.Background()

	docID := seedDocument(t, docRepo, documents.StatusPendingReview, documents.TypeReceipt)
	seedField(fieldRepo, docID, NameVendorName, "ACME Corp", 0.60)

	// First reviewer wins.
	_, err := ledger.Correct(ctx, docID, NameVendorName, "Acme Corporation", "alice", nil, 1)
	require.NoError(t, err)

	// Second reviewer still holds version 1.
	_, err = ledger.Correct(ctx, docID, NameVendorName, "ACME Inc", "bob", nil, 1)
	require.True(t, shared.IsConflict(err), "expected version conflict, got %v", err)

	// After re-fetching the current version the write goes through.
	field, err := ledger.Correct(ctx, docID, NameVendorName, "ACME Inc", "bob", nil, 2)
	require.NoError(t, err)
	require.Equal(t, "ACME Inc", field.FinalValue())
	require.Equal(t, int64(3), field.Version)

	history, err := ledger.History(ctx, docID)
	require.NoError(t, err)
	require.Len(t, history, 2, "only successful corrections append history")
}

func TestCorrectLockedDocument(t *testing.T) {
	docRepo := newMemoryDocRepo()
	fieldRepo := newMemoryFieldRepo()
	ledger := NewLedger(documents.NewService(docRepo, nil), fieldRepo)
	ctx := context.Background()

	docID := seedDocument(t, docRepo, documents.StatusPosted, documents.TypeReceipt)
	seedField(fieldRepo, docID, NameTotalAmount, "99.00", 0.90)

	_, err := ledger.Correct(ctx, docID, NameTotalAmount, "100.00", "alice", nil, 0)
	require.ErrorIs(t, err, shared.ErrDocumentLocked)

	_, err = ledger.Verify(ctx, docID, NameTotalAmount, "alice", 0)
	require.ErrorIs(t, err, shared.ErrDocumentLocked)
}

func TestVerifyAcceptsWithoutHistory(t *testing.T) {
	docRepo := newMemoryDocRepo()
	fieldRepo := newMemoryFieldRepo()
	ledger := NewLedger(documents.NewService(docRepo, nil), fieldRepo)
	ctx := context.Background()

	docID := seedDocument(t, docRepo, documents.StatusPendingReview, documents.TypeReceipt)
	seedField(fieldRepo, docID, NameCurrency, "EUR", 0.35)

	field, err := ledger.Verify(ctx, docID, NameCurrency, "alice", 0)
	require.NoError(t, err)
	require.True(t, field.IsVerified)
	require.Nil(t, field.CorrectedValue, "verify must not touch values")
	require.Equal(t, "EUR", field.FinalValue())
	require.False(t, field.NeedsReview(0.70), "verified fields never need review")

	history, err := ledger.History(ctx, docID)
	require.NoError(t, err)
	require.Empty(t, history, "verification is not a correction")
}

func TestNeedsReviewDerivation(t *testing.T) {
	low := Field{Confidence: 0.42}
	require.True(t, low.NeedsReview(0.70))

	high := Field{Confidence: 0.88}
	require.False(t, high.NeedsReview(0.70))

	verified := Field{Confidence: 0.10, IsVerified: true}
	require.False(t, verified.NeedsReview(0.70))
}

func TestAggregateConfidence(t *testing.T) {
	fields := []Field{{Confidence: 0.9}, {Confidence: 0.6}, {Confidence: 0.3}}
	require.InDelta(t, 0.6, AggregateConfidence(fields), 0.0001)
	require.Zero(t, AggregateConfidence(nil))
}
