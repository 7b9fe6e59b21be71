package fields

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperledger/paperledger/internal/platform/db"
	"github.com/paperledger/paperledger/internal/shared"
)

// Repository encapsulates DB operations for extracted fields and the
// correction history.
type Repository interface {
	InsertFields(ctx context.Context, list []Field) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Field, error)
	GetByName(ctx context.Context, documentID uuid.UUID, name Name) (Field, error)
	ListHistory(ctx context.Context, documentID uuid.UUID) ([]HistoryEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a correction transaction.
type TxRepository interface {
	GetByNameForUpdate(ctx context.Context, documentID uuid.UUID, name Name) (Field, error)
	// UpdateField applies the write with a version guard; a stale version
	// yields shared.ConflictError.
	UpdateField(ctx context.Context, fieldID uuid.UUID, correctedValue *string, verified bool, expectedVersion int64) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const fieldColumns = `id, document_id, field_name, extracted_value, corrected_value, confidence, bbox_x, bbox_y, bbox_width, bbox_height, is_verified, version, created_at, updated_at`

func scanField(row pgx.Row) (Field, error) {
	var f Field
	err := row.Scan(&f.ID, &f.DocumentID, &f.Name, &f.ExtractedValue, &f.CorrectedValue, &f.Confidence,
		&f.BoundingBox.X, &f.BoundingBox.Y, &f.BoundingBox.Width, &f.BoundingBox.Height,
		&f.IsVerified, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Field{}, shared.ErrNotFound
		}
		return Field{}, err
	}
	return f, nil
}

// InsertFields writes extraction output. The (document_id, field_name) key is
// unique, so re-running extraction after a timeout cannot double-apply.
func (r *repository) InsertFields(ctx context.Context, list []Field) error {
	for _, f := range list {
		_, err := r.db.Exec(ctx, `INSERT INTO extracted_fields
(id, document_id, field_name, extracted_value, confidence, bbox_x, bbox_y, bbox_width, bbox_height, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1)
ON CONFLICT (document_id, field_name) DO NOTHING`,
			f.ID, f.DocumentID, f.Name, f.ExtractedValue, f.Confidence,
			f.BoundingBox.X, f.BoundingBox.Y, f.BoundingBox.Width, f.BoundingBox.Height)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Field, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fieldColumns+` FROM extracted_fields WHERE document_id=$1 ORDER BY field_name ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *repository) GetByName(ctx context.Context, documentID uuid.UUID, name Name) (Field, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fieldColumns+` FROM extracted_fields WHERE document_id=$1 AND field_name=$2`, documentID, name)
	return scanField(row)
}

func (r *repository) ListHistory(ctx context.Context, documentID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, document_id, field_id, field_name, old_value, new_value, actor, note, occurred_at
FROM correction_history WHERE document_id=$1 ORDER BY id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.FieldID, &h.FieldName, &h.OldValue, &h.NewValue, &h.Actor, &h.Note, &h.At); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetByNameForUpdate(ctx context.Context, documentID uuid.UUID, name Name) (Field, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+fieldColumns+` FROM extracted_fields WHERE document_id=$1 AND field_name=$2 FOR UPDATE`, documentID, name)
	return scanField(row)
}

func (r *txRepository) UpdateField(ctx context.Context, fieldID uuid.UUID, correctedValue *string, verified bool, expectedVersion int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE extracted_fields
SET corrected_value=COALESCE($2, corrected_value), is_verified=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$4`, fieldID, correctedValue, verified, expectedVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var current int64
		if err := r.tx.QueryRow(ctx, `SELECT version FROM extracted_fields WHERE id=$1`, fieldID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		return &shared.ConflictError{Entity: "field", ExpectedVersion: expectedVersion, CurrentVersion: current}
	}
	return nil
}

func (r *txRepository) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO correction_history (document_id, field_id, field_name, old_value, new_value, actor, note, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.DocumentID, entry.FieldID, entry.FieldName, entry.OldValue, entry.NewValue, entry.Actor, entry.Note, entry.At)
	return err
}
