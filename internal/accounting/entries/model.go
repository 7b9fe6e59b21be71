package entries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates proposed entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusValidated EntryStatus = "VALIDATED"
	EntryStatusPosted    EntryStatus = "POSTED"
	EntryStatusRejected  EntryStatus = "REJECTED"
)

// ProposedEntry maps a document's finalized fields to double-entry postings.
// Sequence is a monotonically assigned number used as the stable tie-break
// when ledger reports order entries sharing a date.
type ProposedEntry struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Sequence   int64
	Date       time.Time
	Memo       string
	Status     EntryStatus
	CreatedBy  string
	PostedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []EntryLine
}

// EntryLine stores a debit or credit amount for an account. Amounts are
// fixed-point decimals; exactly one of the two must be non-zero.
type EntryLine struct {
	ID        int64
	EntryID   uuid.UUID
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Position  int
}

// Totals returns the debit and credit sums across all lines.
func Totals(lines []EntryLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}
