package entries

import (
	"time"

	"github.com/shopspring/decimal"
)

// GenerateRequest is the payload for generating a proposed entry from a
// document's finalized fields.
type GenerateRequest struct {
	Actor               string `json:"actor"`
	AcceptLowConfidence bool   `json:"accept_low_confidence"`
	Memo                string `json:"memo"`
}

// RejectRequest carries the reviewer's reason for discarding a draft.
type RejectRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason" validate:"required"`
}

// LineResponse is the wire representation of an entry line.
type LineResponse struct {
	AccountID int64  `json:"account_id"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Position  int    `json:"position"`
}

// EntryResponse is the wire representation of a proposed entry. TotalDebit,
// TotalCredit and IsBalanced are derived on read.
type EntryResponse struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id"`
	Sequence    int64          `json:"sequence"`
	Date        string         `json:"date"`
	Memo        string         `json:"memo"`
	Status      string         `json:"status"`
	CreatedBy   string         `json:"created_by"`
	PostedAt    *time.Time     `json:"posted_at,omitempty"`
	Lines       []LineResponse `json:"lines"`
	TotalDebit  string         `json:"total_debit"`
	TotalCredit string         `json:"total_credit"`
	IsBalanced  bool           `json:"is_balanced"`
}

// ToEntryResponse converts a proposed entry to wire form. Amounts render as
// fixed-point strings so clients never receive binary floats.
func ToEntryResponse(e ProposedEntry) EntryResponse {
	lines := make([]LineResponse, 0, len(e.Lines))
	for _, line := range e.Lines {
		lines = append(lines, LineResponse{
			AccountID: line.AccountID,
			Debit:     line.Debit.StringFixed(2),
			Credit:    line.Credit.StringFixed(2),
			Position:  line.Position,
		})
	}
	debit, credit := Totals(e.Lines)
	return EntryResponse{
		ID:          e.ID.String(),
		DocumentID:  e.DocumentID.String(),
		Sequence:    e.Sequence,
		Date:        e.Date.Format("2006-01-02"),
		Memo:        e.Memo,
		Status:      string(e.Status),
		CreatedBy:   e.CreatedBy,
		PostedAt:    e.PostedAt,
		Lines:       lines,
		TotalDebit:  debit.StringFixed(2),
		TotalCredit: credit.StringFixed(2),
		IsBalanced:  debit.Equal(credit) && debit.GreaterThan(decimal.Zero),
	}
}
