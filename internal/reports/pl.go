package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// IncomeStatementAccount represents a revenue or expense account summary.
type IncomeStatementAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// IncomeStatementSection groups accounts by nature.
type IncomeStatementSection struct {
	Label    string                   `json:"label"`
	Accounts []IncomeStatementAccount `json:"accounts"`
	Total    decimal.Decimal          `json:"total"`
}

// IncomeStatement contains the structured output of the builder.
type IncomeStatement struct {
	Revenue   IncomeStatementSection `json:"revenue"`
	Expense   IncomeStatementSection `json:"expense"`
	NetIncome decimal.Decimal        `json:"net_income"`
}

// BuildIncomeStatement aggregates period movements into revenue and expense
// sections. Only period movement counts; opening balances are irrelevant to
// an income statement.
func BuildIncomeStatement(accounts []AccountBalance) IncomeStatement {
	revenue := IncomeStatementSection{Label: "Revenue", Total: decimal.Zero}
	expense := IncomeStatementSection{Label: "Expense", Total: decimal.Zero}

	for _, acc := range accounts {
		row := IncomeStatementAccount{Code: acc.Code, Name: acc.Name, Amount: acc.SignedMovement()}
		switch strings.ToUpper(acc.Type) {
		case "REVENUE":
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case "EXPENSE":
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return IncomeStatement{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
