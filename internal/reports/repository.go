package reports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paperledger/paperledger/internal/shared"
)

// Repository persists report rows and reads ledger data for the builders.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Report, error)
	FindByKey(ctx context.Context, t ReportType, start, end time.Time) (Report, error)
	Insert(ctx context.Context, report Report) (Report, error)
	// SwapCachedData replaces cached_data and bumps version in one UPDATE,
	// so concurrent readers see either the old or the new snapshot whole.
	SwapCachedData(ctx context.Context, id uuid.UUID, data json.RawMessage, generatedAt time.Time) (Report, error)
	// MarkFailed records the failure reason and leaves cached_data intact.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (Report, error)
	MarkGenerating(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) (Report, error)
	ListByStatus(ctx context.Context, status ReportStatus) ([]Report, error)

	AccountBalances(ctx context.Context, start, end time.Time) ([]AccountBalance, error)
	Postings(ctx context.Context, start, end time.Time) ([]Posting, error)
	OpeningBalances(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const reportColumns = `id, type, period_start, period_end, version, status, cached_data, failure_reason, view_count, generated_at, created_at, updated_at`

func scanReport(row pgx.Row) (Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.Type, &rep.PeriodStart, &rep.PeriodEnd, &rep.Version, &rep.Status, &rep.CachedData, &rep.FailureReason, &rep.ViewCount, &rep.GeneratedAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, shared.ErrNotFound
		}
		return Report{}, err
	}
	return rep, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Report, error) {
	return scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id))
}

func (r *repository) FindByKey(ctx context.Context, t ReportType, start, end time.Time) (Report, error) {
	return scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE type=$1 AND period_start=$2 AND period_end=$3`, t, start, end))
}

func (r *repository) Insert(ctx context.Context, report Report) (Report, error) {
	return scanReport(r.db.QueryRow(ctx, `INSERT INTO reports (id, type, period_start, period_end, version, status)
VALUES ($1, $2, $3, $4, 0, $5)
ON CONFLICT (type, period_start, period_end) DO UPDATE SET updated_at = NOW()
RETURNING `+reportColumns, report.ID, report.Type, report.PeriodStart, report.PeriodEnd, StatusDraft))
}

func (r *repository) SwapCachedData(ctx context.Context, id uuid.UUID, data json.RawMessage, generatedAt time.Time) (Report, error) {
	return scanReport(r.db.QueryRow(ctx, `UPDATE reports
SET cached_data=$2, version=version+1, status=$3, failure_reason=NULL, generated_at=$4, updated_at=NOW()
WHERE id=$1
RETURNING `+reportColumns, id, data, StatusCompleted, generatedAt))
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (Report, error) {
	return scanReport(r.db.QueryRow(ctx, `UPDATE reports
SET status=$2, failure_reason=$3, updated_at=NOW()
WHERE id=$1
RETURNING `+reportColumns, id, StatusFailed, reason))
}

func (r *repository) MarkGenerating(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE reports SET status=$2, updated_at=NOW() WHERE id=$1`, id, StatusGenerating)
	return err
}

func (r *repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE reports SET view_count=view_count+1 WHERE id=$1`, id)
	return err
}

func (r *repository) Archive(ctx context.Context, id uuid.UUID) (Report, error) {
	rep, err := scanReport(r.db.QueryRow(ctx, `UPDATE reports SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2 RETURNING `+reportColumns, id, StatusCompleted, StatusArchived))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Distinguish a missing row from a non-archivable status.
			if _, getErr := r.Get(ctx, id); getErr == nil {
				return Report{}, shared.ErrInvalidTransition
			}
			return Report{}, shared.ErrNotFound
		}
		return Report{}, err
	}
	return rep, nil
}

func (r *repository) ListByStatus(ctx context.Context, status ReportStatus) ([]Report, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE status=$1 ORDER BY updated_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

func (r *repository) AccountBalances(ctx context.Context, start, end time.Time) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT a.id, a.code, a.name, a.type,
COALESCE(SUM(CASE WHEN e.date < $1 AND a.type IN ('LIABILITY','EQUITY','REVENUE') THEN l.credit - l.debit
               WHEN e.date < $1 THEN l.debit - l.credit ELSE 0 END), 0) AS opening,
COALESCE(SUM(CASE WHEN e.date BETWEEN $1 AND $2 THEN l.debit ELSE 0 END), 0) AS debit,
COALESCE(SUM(CASE WHEN e.date BETWEEN $1 AND $2 THEN l.credit ELSE 0 END), 0) AS credit
FROM entry_lines l
JOIN proposed_entries e ON e.id = l.entry_id AND e.status = 'POSTED'
JOIN accounts a ON a.id = l.account_id
WHERE e.date <= $2
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		var opening, debit, credit string
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &opening, &debit, &credit); err != nil {
			return nil, err
		}
		if b.Opening, err = decimal.NewFromString(opening); err != nil {
			return nil, err
		}
		if b.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if b.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *repository) Postings(ctx context.Context, start, end time.Time) ([]Posting, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.seq, e.date, e.memo, l.account_id, a.code, a.name, a.type, l.debit, l.credit, l.position
FROM entry_lines l
JOIN proposed_entries e ON e.id = l.entry_id AND e.status = 'POSTED'
JOIN accounts a ON a.id = l.account_id
WHERE e.date BETWEEN $1 AND $2
ORDER BY e.date, e.seq, l.position`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var postings []Posting
	for rows.Next() {
		var p Posting
		var debit, credit string
		if err := rows.Scan(&p.EntryID, &p.Sequence, &p.Date, &p.Memo, &p.AccountID, &p.AccountCode, &p.AccountName, &p.AccountType, &debit, &credit, &p.Position); err != nil {
			return nil, err
		}
		if p.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if p.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func (r *repository) OpeningBalances(ctx context.Context, before time.Time) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `SELECT l.account_id,
COALESCE(SUM(CASE WHEN a.type IN ('LIABILITY','EQUITY','REVENUE') THEN l.credit - l.debit ELSE l.debit - l.credit END), 0)
FROM entry_lines l
JOIN proposed_entries e ON e.id = l.entry_id AND e.status = 'POSTED'
JOIN accounts a ON a.id = l.account_id
WHERE e.date < $1
GROUP BY l.account_id`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	openings := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var accountID int64
		var balance string
		if err := rows.Scan(&accountID, &balance); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, err
		}
		openings[accountID] = d
	}
	return openings, rows.Err()
}
