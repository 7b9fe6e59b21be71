package mappings

import "time"

// Role names the posting-line slot a mapping resolves.
type Role string

const (
	RoleExpense    Role = "EXPENSE"
	RoleTax        Role = "TAX"
	RoleSettlement Role = "SETTLEMENT"
)

// AccountMapping links a document type and line role to a ledger account.
// The table is supplied by the chart-of-accounts collaborator.
type AccountMapping struct {
	DocumentType string
	Role         Role
	AccountID    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
