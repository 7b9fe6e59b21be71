package reports

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balances() []AccountBalance {
	return []AccountBalance{
		{AccountID: 1, Code: "1000", Name: "Cash", Type: "ASSET", Opening: dec("500.00"), Debit: dec("200.00"), Credit: dec("50.00")},
		{AccountID: 2, Code: "1360", Name: "Input VAT", Type: "ASSET", Opening: decimal.Zero, Debit: dec("10.00"), Credit: decimal.Zero},
		{AccountID: 3, Code: "2000", Name: "Accounts Payable", Type: "LIABILITY", Opening: dec("300.00"), Debit: dec("50.00"), Credit: dec("160.00")},
		{AccountID: 4, Code: "3000", Name: "Retained Earnings", Type: "EQUITY", Opening: dec("200.00"), Debit: decimal.Zero, Credit: decimal.Zero},
		{AccountID: 5, Code: "4000", Name: "Sales", Type: "REVENUE", Opening: decimal.Zero, Debit: decimal.Zero, Credit: dec("400.00")},
		{AccountID: 6, Code: "5000", Name: "Office Expenses", Type: "EXPENSE", Opening: decimal.Zero, Debit: dec("150.00"), Credit: decimal.Zero},
	}
}

func TestSignedMovementFollowsAccountNature(t *testing.T) {
	asset := AccountBalance{Type: "ASSET", Debit: dec("200.00"), Credit: dec("50.00")}
	if !asset.SignedMovement().Equal(dec("150.00")) {
		t.Fatalf("asset movement = %s, want 150.00", asset.SignedMovement())
	}
	liability := AccountBalance{Type: "LIABILITY", Debit: dec("50.00"), Credit: dec("160.00")}
	if !liability.SignedMovement().Equal(dec("110.00")) {
		t.Fatalf("liability movement = %s, want 110.00", liability.SignedMovement())
	}
}

func TestBuildTrialBalanceGroupsAndTotals(t *testing.T) {
	tb := BuildTrialBalance(balances())

	if len(tb.Groups) != 6 {
		t.Fatalf("expected 6 groups, got %d", len(tb.Groups))
	}
	if tb.Groups[0].Key != "10" {
		t.Fatalf("first group key = %q, want 10", tb.Groups[0].Key)
	}
	if !tb.TotalDebit.Equal(dec("410.00")) {
		t.Fatalf("total debit = %s, want 410.00", tb.TotalDebit)
	}
	if !tb.TotalCredit.Equal(dec("610.00")) {
		t.Fatalf("total credit = %s, want 610.00", tb.TotalCredit)
	}

	cash := tb.Groups[0].Accounts[0]
	if !cash.Closing.Equal(dec("650.00")) {
		t.Fatalf("cash closing = %s, want 650.00", cash.Closing)
	}
}

func TestBuildTrialBalanceGroupsByDotPrefix(t *testing.T) {
	tb := BuildTrialBalance([]AccountBalance{
		{Code: "10.01", Name: "Cash EUR", Type: "ASSET", Opening: decimal.Zero, Debit: dec("1.00"), Credit: decimal.Zero},
		{Code: "10.02", Name: "Cash USD", Type: "ASSET", Opening: decimal.Zero, Debit: dec("2.00"), Credit: decimal.Zero},
	})
	if len(tb.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(tb.Groups))
	}
	if tb.Groups[0].Key != "10" {
		t.Fatalf("group key = %q, want 10", tb.Groups[0].Key)
	}
	if len(tb.Groups[0].Accounts) != 2 {
		t.Fatalf("expected 2 accounts in group, got %d", len(tb.Groups[0].Accounts))
	}
}

func TestBuildBalanceSheetBalancedWithinTolerance(t *testing.T) {
	// Assets 650 + 10 = 660; liabilities 410 + equity 200 = 610. Off by 50,
	// outside any sane tolerance.
	bs := BuildBalanceSheet(balances(), dec("0.01"))
	if bs.IsBalanced {
		t.Fatalf("expected unbalanced sheet, assets=%s liabilities+equity=%s", bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
	if !bs.Assets.Total.Equal(dec("660.00")) {
		t.Fatalf("assets total = %s, want 660.00", bs.Assets.Total)
	}
	if !bs.TotalLiabilitiesAndEquity.Equal(dec("610.00")) {
		t.Fatalf("liabilities+equity = %s, want 610.00", bs.TotalLiabilitiesAndEquity)
	}

	// A one-cent rounding difference within tolerance still reports balanced.
	near := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: "ASSET", Opening: dec("100.01"), Debit: decimal.Zero, Credit: decimal.Zero},
		{Code: "3000", Name: "Equity", Type: "EQUITY", Opening: dec("100.00"), Debit: decimal.Zero, Credit: decimal.Zero},
	}
	bs = BuildBalanceSheet(near, dec("0.01"))
	if !bs.IsBalanced {
		t.Fatalf("expected balanced within 0.01 tolerance")
	}
	bs = BuildBalanceSheet(near, decimal.Zero)
	if bs.IsBalanced {
		t.Fatalf("expected unbalanced at zero tolerance")
	}
}

func TestBuildIncomeStatementIgnoresOpenings(t *testing.T) {
	is := BuildIncomeStatement(balances())
	if !is.Revenue.Total.Equal(dec("400.00")) {
		t.Fatalf("revenue = %s, want 400.00", is.Revenue.Total)
	}
	if !is.Expense.Total.Equal(dec("150.00")) {
		t.Fatalf("expense = %s, want 150.00", is.Expense.Total)
	}
	if !is.NetIncome.Equal(dec("250.00")) {
		t.Fatalf("net income = %s, want 250.00", is.NetIncome)
	}
	if len(is.Revenue.Accounts) != 1 || len(is.Expense.Accounts) != 1 {
		t.Fatalf("asset and liability accounts must not leak into the income statement")
	}
}

func TestBuildGeneralLedgerOrderingAndRunningBalance(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	e1, e2, e3 := uuid.New(), uuid.New(), uuid.New()

	// Deliberately out of order: the builder must sort by date, then sequence.
	postings := []Posting{
		{EntryID: e3, Sequence: 3, Date: day2, Memo: "later", AccountID: 1, AccountCode: "1000", AccountName: "Cash", AccountType: "ASSET", Debit: dec("30.00"), Credit: decimal.Zero, Position: 1},
		{EntryID: e1, Sequence: 1, Date: day1, Memo: "first", AccountID: 1, AccountCode: "1000", AccountName: "Cash", AccountType: "ASSET", Debit: dec("100.00"), Credit: decimal.Zero, Position: 1},
		{EntryID: e2, Sequence: 2, Date: day1, Memo: "same day", AccountID: 1, AccountCode: "1000", AccountName: "Cash", AccountType: "ASSET", Debit: decimal.Zero, Credit: dec("40.00"), Position: 1},
		{EntryID: e1, Sequence: 1, Date: day1, Memo: "first", AccountID: 3, AccountCode: "2000", AccountName: "Accounts Payable", AccountType: "LIABILITY", Debit: decimal.Zero, Credit: dec("100.00"), Position: 2},
	}
	openings := map[int64]decimal.Decimal{1: dec("500.00")}

	gl := BuildGeneralLedger(postings, openings)
	if len(gl.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(gl.Accounts))
	}

	cash := gl.Accounts[0]
	if cash.Code != "1000" {
		t.Fatalf("accounts must be ordered by code, got %q first", cash.Code)
	}
	if !cash.Opening.Equal(dec("500.00")) {
		t.Fatalf("cash opening = %s, want 500.00", cash.Opening)
	}
	if len(cash.Lines) != 3 {
		t.Fatalf("expected 3 cash lines, got %d", len(cash.Lines))
	}
	if cash.Lines[0].Memo != "first" || cash.Lines[1].Memo != "same day" || cash.Lines[2].Memo != "later" {
		t.Fatalf("lines out of order: %q, %q, %q", cash.Lines[0].Memo, cash.Lines[1].Memo, cash.Lines[2].Memo)
	}
	wantRunning := []string{"600.00", "560.00", "590.00"}
	for i, want := range wantRunning {
		if !cash.Lines[i].Running.Equal(dec(want)) {
			t.Fatalf("running[%d] = %s, want %s", i, cash.Lines[i].Running, want)
		}
	}
	if !cash.Closing.Equal(dec("590.00")) {
		t.Fatalf("cash closing = %s, want 590.00", cash.Closing)
	}

	payable := gl.Accounts[1]
	if !payable.Opening.IsZero() {
		t.Fatalf("payable opening = %s, want 0", payable.Opening)
	}
	if !payable.Closing.Equal(dec("100.00")) {
		t.Fatalf("payable closing = %s, want 100.00", payable.Closing)
	}
}

func TestBuildSubLedgerNarrowsToOneAccount(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	postings := []Posting{
		{EntryID: uuid.New(), Sequence: 1, Date: day, AccountID: 1, AccountCode: "1000", AccountName: "Cash", AccountType: "ASSET", Debit: dec("10.00"), Credit: decimal.Zero, Position: 1},
		{EntryID: uuid.New(), Sequence: 1, Date: day, AccountID: 3, AccountCode: "2000", AccountName: "Accounts Payable", AccountType: "LIABILITY", Debit: decimal.Zero, Credit: dec("10.00"), Position: 2},
	}

	acct, ok := BuildSubLedger(postings, nil, 3)
	if !ok {
		t.Fatalf("expected account 3 in sub ledger")
	}
	if acct.Code != "2000" || len(acct.Lines) != 1 {
		t.Fatalf("unexpected sub ledger account: code=%q lines=%d", acct.Code, len(acct.Lines))
	}

	if _, ok := BuildSubLedger(postings, nil, 99); ok {
		t.Fatalf("expected no account 99")
	}
}

func TestReportKeyAndCacheKey(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	key := Key(TypeTrialBalance, start, end)
	if key != "TRIAL_BALANCE:2026-03-01:2026-03-31" {
		t.Fatalf("key = %q", key)
	}

	id := uuid.New()
	rep := Report{ID: id, Version: 3}
	if rep.CacheKey() != "report:"+id.String()+":v3" {
		t.Fatalf("cache key = %q", rep.CacheKey())
	}
}
