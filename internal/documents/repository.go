package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperledger/paperledger/internal/shared"
)

// Repository encapsulates DB operations for documents. Status writes use
// compare-and-swap on the status column so two concurrent reviewers cannot
// double-transition the same document.
type Repository interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	ListByStatus(ctx context.Context, status Status) ([]Document, error)
	// CompareAndSwapStatus advances status from → to; shared.ErrInvalidTransition
	// when the stored status no longer matches from.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	SetClassification(ctx context.Context, id uuid.UUID, docType DocumentType, confidence float64, warnings []string, from, to Status) error
	SetUnrecognized(ctx context.Context, id uuid.UUID, reason string, warnings []string, from Status) error
	AppendWarnings(ctx context.Context, id uuid.UUID, warnings []string) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const documentColumns = `id, original_filename, content_ref, status, document_type, unrecognized_reason, ai_confidence_score, ai_warnings, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var docType *string
	err := row.Scan(&d.ID, &d.OriginalFilename, &d.ContentRef, &d.Status, &docType, &d.UnrecognizedReason, &d.AIConfidenceScore, &d.AIWarnings, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.ErrNotFound
		}
		return Document{}, err
	}
	if docType != nil {
		t := DocumentType(*docType)
		d.DocumentType = &t
	}
	return d, nil
}

func (r *repository) Create(ctx context.Context, doc Document) (Document, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO documents (id, original_filename, content_ref, status, ai_warnings)
VALUES ($1,$2,$3,$4,$5) RETURNING `+documentColumns,
		doc.ID, doc.OriginalFilename, doc.ContentRef, doc.Status, doc.AIWarnings)
	return scanDocument(row)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

func (r *repository) ListByStatus(ctx context.Context, status Status) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE status=$1 ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *repository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	cmd, err := r.db.Exec(ctx, `UPDATE documents SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.casFailure(ctx, id)
	}
	return nil
}

func (r *repository) SetClassification(ctx context.Context, id uuid.UUID, docType DocumentType, confidence float64, warnings []string, from, to Status) error {
	cmd, err := r.db.Exec(ctx, `UPDATE documents
SET status=$3, document_type=$4, ai_confidence_score=$5, ai_warnings=$6, unrecognized_reason=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2`, id, from, to, string(docType), confidence, warnings)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.casFailure(ctx, id)
	}
	return nil
}

func (r *repository) SetUnrecognized(ctx context.Context, id uuid.UUID, reason string, warnings []string, from Status) error {
	cmd, err := r.db.Exec(ctx, `UPDATE documents
SET status=$3, unrecognized_reason=$4, ai_warnings=$5, updated_at=NOW()
WHERE id=$1 AND status=$2`, id, from, StatusUnrecognized, reason, warnings)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.casFailure(ctx, id)
	}
	return nil
}

func (r *repository) AppendWarnings(ctx context.Context, id uuid.UUID, warnings []string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE documents SET ai_warnings = ai_warnings || $2, updated_at=NOW() WHERE id=$1`, id, warnings)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// casFailure distinguishes a missing row from a lost status race.
func (r *repository) casFailure(ctx context.Context, id uuid.UUID) error {
	var status Status
	err := r.db.QueryRow(ctx, `SELECT status FROM documents WHERE id=$1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	}
	return shared.ErrInvalidTransition
}
