package reports

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportType enumerates the report families the engine can build.
type ReportType string

const (
	TypeBalanceSheet    ReportType = "BALANCE_SHEET"
	TypeIncomeStatement ReportType = "INCOME_STATEMENT"
	TypeTrialBalance    ReportType = "TRIAL_BALANCE"
	TypeGeneralLedger   ReportType = "GENERAL_LEDGER"
	TypeSubLedger       ReportType = "SUB_LEDGER"
)

// ValidType reports whether t names a known report type.
func ValidType(t ReportType) bool {
	switch t {
	case TypeBalanceSheet, TypeIncomeStatement, TypeTrialBalance, TypeGeneralLedger, TypeSubLedger:
		return true
	}
	return false
}

// ReportStatus enumerates report lifecycle values. A FAILED refresh keeps the
// last COMPLETED cached_data so readers never lose the previous snapshot.
type ReportStatus string

const (
	StatusDraft      ReportStatus = "DRAFT"
	StatusGenerating ReportStatus = "GENERATING"
	StatusCompleted  ReportStatus = "COMPLETED"
	StatusFailed     ReportStatus = "FAILED"
	StatusArchived   ReportStatus = "ARCHIVED"
)

// Report is a versioned, cached snapshot of a built report. Version increases
// by exactly one on every successful refresh; cached_data swaps in a single
// UPDATE so a concurrent reader sees either the old or the new snapshot whole.
type Report struct {
	ID            uuid.UUID
	Type          ReportType
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Version       int64
	Status        ReportStatus
	CachedData    json.RawMessage
	FailureReason *string
	ViewCount     int64
	GeneratedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key identifies a report by type and period, the unit singleflight and the
// find-or-compute lookup operate on.
func Key(t ReportType, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s", t, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// CacheKey names the Redis entry for one version of a report. The version
// suffix makes stale entries unreachable after a refresh without an explicit
// invalidation step.
func (r Report) CacheKey() string {
	return fmt.Sprintf("report:%s:v%d", r.ID, r.Version)
}
