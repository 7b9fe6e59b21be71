package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Posting is one entry line of a posted entry, flattened with its account and
// entry metadata for ledger building.
type Posting struct {
	EntryID     uuid.UUID
	Sequence    int64
	Date        time.Time
	Memo        string
	AccountID   int64
	AccountCode string
	AccountName string
	AccountType string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Position    int
}

// signed returns the posting amount in the account's natural sign.
func (p Posting) signed() decimal.Decimal {
	switch strings.ToUpper(p.AccountType) {
	case "LIABILITY", "EQUITY", "REVENUE":
		return p.Credit.Sub(p.Debit)
	default:
		return p.Debit.Sub(p.Credit)
	}
}

// LedgerLine is one movement inside a general ledger account section.
// Running carries the balance after applying this line.
type LedgerLine struct {
	Date     time.Time       `json:"date"`
	EntryID  uuid.UUID       `json:"entry_id"`
	Sequence int64           `json:"sequence"`
	Memo     string          `json:"memo"`
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Running  decimal.Decimal `json:"running"`
}

// LedgerAccount is the per-account slice of the general ledger. Closing always
// equals Opening plus the signed sum of the lines.
type LedgerAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Opening   decimal.Decimal `json:"opening"`
	Lines     []LedgerLine    `json:"lines"`
	Closing   decimal.Decimal `json:"closing"`
}

// GeneralLedger is the structured output of the ledger builder.
type GeneralLedger struct {
	Accounts []LedgerAccount `json:"accounts"`
}

// BuildGeneralLedger orders postings chronologically within each account,
// breaking date ties on the entry sequence number, and computes running and
// closing balances. Openings supplies balances carried in from before the
// period; accounts without an entry there open at zero.
func BuildGeneralLedger(postings []Posting, openings map[int64]decimal.Decimal) GeneralLedger {
	sorted := append([]Posting(nil), postings...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		if sorted[i].Sequence != sorted[j].Sequence {
			return sorted[i].Sequence < sorted[j].Sequence
		}
		return sorted[i].Position < sorted[j].Position
	})

	byAccount := make(map[int64]*LedgerAccount)
	order := make([]int64, 0)
	for _, p := range sorted {
		acct, ok := byAccount[p.AccountID]
		if !ok {
			opening := decimal.Zero
			if o, found := openings[p.AccountID]; found {
				opening = o
			}
			acct = &LedgerAccount{
				AccountID: p.AccountID,
				Code:      p.AccountCode,
				Name:      p.AccountName,
				Type:      p.AccountType,
				Opening:   opening,
				Closing:   opening,
			}
			byAccount[p.AccountID] = acct
			order = append(order, p.AccountID)
		}
		acct.Closing = acct.Closing.Add(p.signed())
		acct.Lines = append(acct.Lines, LedgerLine{
			Date:     p.Date,
			EntryID:  p.EntryID,
			Sequence: p.Sequence,
			Memo:     p.Memo,
			Debit:    p.Debit,
			Credit:   p.Credit,
			Running:  acct.Closing,
		})
	}

	sort.Slice(order, func(i, j int) bool { return byAccount[order[i]].Code < byAccount[order[j]].Code })
	gl := GeneralLedger{Accounts: make([]LedgerAccount, 0, len(order))}
	for _, id := range order {
		gl.Accounts = append(gl.Accounts, *byAccount[id])
	}
	return gl
}

// BuildSubLedger returns the ledger slice for a single account.
func BuildSubLedger(postings []Posting, openings map[int64]decimal.Decimal, accountID int64) (LedgerAccount, bool) {
	gl := BuildGeneralLedger(postings, openings)
	for _, acct := range gl.Accounts {
		if acct.AccountID == accountID {
			return acct, true
		}
	}
	return LedgerAccount{}, false
}
