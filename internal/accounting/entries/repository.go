package entries

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
	"github.com/paperledger/paperledger/internal/platform/db"
	"github.com/paperledger/paperledger/internal/shared"
)

// Repository encapsulates DB operations for proposed entries.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (ProposedEntry, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]ProposedEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Document
// locking lives here because posting must advance the parent document in the
// same transaction as the entry status change.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry ProposedEntry) (ProposedEntry, error)
	InsertLines(ctx context.Context, entryID uuid.UUID, lines []EntryLine) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (ProposedEntry, error)
	// UpdateStatus advances status with a compare-and-swap guard.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to EntryStatus) error
	// LockDocument moves the parent document to POSTED, failing when it is
	// not in a postable status.
	LockDocument(ctx context.Context, documentID uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, document_id, seq, date, memo, status, created_by, posted_at, created_at, updated_at`

func scanEntry(row pgx.Row) (ProposedEntry, error) {
	var e ProposedEntry
	err := row.Scan(&e.ID, &e.DocumentID, &e.Sequence, &e.Date, &e.Memo, &e.Status, &e.CreatedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProposedEntry{}, acctshared.ErrEntryNotFound
		}
		return ProposedEntry{}, err
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (ProposedEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM proposed_entries WHERE id=$1`, id))
	if err != nil {
		return ProposedEntry{}, err
	}
	lines, err := r.lines(ctx, r.db, id)
	if err != nil {
		return ProposedEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]ProposedEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM proposed_entries WHERE document_id=$1 ORDER BY seq ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ProposedEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		lines, err := r.lines(ctx, r.db, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Lines = lines
	}
	return list, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repository) lines(ctx context.Context, q queryer, entryID uuid.UUID) ([]EntryLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, position FROM entry_lines WHERE entry_id=$1 ORDER BY position ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []EntryLine
	for rows.Next() {
		var line EntryLine
		var debit, credit string
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &debit, &credit, &line.Position); err != nil {
			return nil, err
		}
		if line.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if line.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, parent: r})
	})
}

type txRepository struct {
	tx     pgx.Tx
	parent *repository
}

func (r *txRepository) InsertEntry(ctx context.Context, entry ProposedEntry) (ProposedEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO proposed_entries (id, document_id, date, memo, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING seq, created_at, updated_at`,
		entry.ID, entry.DocumentID, entry.Date, entry.Memo, entry.Status, entry.CreatedBy)
	if err := row.Scan(&entry.Sequence, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return ProposedEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID uuid.UUID, lines []EntryLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO entry_lines (entry_id, account_id, debit, credit, position)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit.String(), line.Credit.String(), line.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (ProposedEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM proposed_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return ProposedEntry{}, err
	}
	lines, err := r.parent.lines(ctx, r.tx, id)
	if err != nil {
		return ProposedEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to EntryStatus) error {
	extra := ""
	if to == EntryStatusPosted {
		extra = ", posted_at=NOW()"
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE proposed_entries SET status=$3, updated_at=NOW()`+extra+` WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return acctshared.ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) LockDocument(ctx context.Context, documentID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE documents SET status='POSTED', updated_at=NOW()
WHERE id=$1 AND status IN ('CATEGORIZED','PENDING_REVIEW')`, documentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentLocked
	}
	return nil
}
