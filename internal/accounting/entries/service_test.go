package entries

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/paperledger/paperledger/internal/accounting/accounts"
	"github.com/paperledger/paperledger/internal/accounting/mappings"
	"github.com/paperledger/paperledger/internal/accounting/periods"
	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/fields"
	"github.com/paperledger/paperledger/internal/shared"
)

// --- in-memory fakes ---

type memDocRepo struct {
	docs map[uuid.UUID]documents.Document
}

func (r *memDocRepo) Create(ctx context.Context, doc documents.Document) (documents.Document, error) {
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *memDocRepo) Get(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return documents.Document{}, shared.ErrNotFound
	}
	return doc, nil
}

func (r *memDocRepo) ListByStatus(ctx context.Context, status documents.Status) ([]documents.Document, error) {
	return nil, nil
}

func (r *memDocRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to documents.Status) error {
	doc, ok := r.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	if doc.Status != from {
		return shared.ErrInvalidTransition
	}
	doc.Status = to
	r.docs[id] = doc
	return nil
}

func (r *memDocRepo) SetClassification(ctx context.Context, id uuid.UUID, docType documents.DocumentType, confidence float64, warnings []string, from, to documents.Status) error {
	return nil
}

func (r *memDocRepo) SetUnrecognized(ctx context.Context, id uuid.UUID, reason string, warnings []string, from documents.Status) error {
	return nil
}

func (r *memDocRepo) AppendWarnings(ctx context.Context, id uuid.UUID, warnings []string) error {
	return nil
}

type memFieldRepo struct {
	byDoc map[uuid.UUID][]fields.Field
}

func (r *memFieldRepo) InsertFields(ctx context.Context, list []fields.Field) error { return nil }

func (r *memFieldRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]fields.Field, error) {
	return r.byDoc[documentID], nil
}

func (r *memFieldRepo) GetByName(ctx context.Context, documentID uuid.UUID, name fields.Name) (fields.Field, error) {
	for _, f := range r.byDoc[documentID] {
		if f.Name == name {
			return f, nil
		}
	}
	return fields.Field{}, shared.ErrNotFound
}

func (r *memFieldRepo) ListHistory(ctx context.Context, documentID uuid.UUID) ([]fields.HistoryEntry, error) {
	return nil, nil
}

func (r *memFieldRepo) WithTx(ctx context.Context, fn func(context.Context, fields.TxRepository) error) error {
	return fn(ctx, nil)
}

type memAccountRepo struct {
	accounts map[int64]accounts.Account
}

func (r *memAccountRepo) List(ctx context.Context) ([]accounts.Account, error) { return nil, nil }

func (r *memAccountRepo) Get(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrNotFound
	}
	return a, nil
}

type memPeriodRepo struct {
	periods []periods.Period
}

func (r *memPeriodRepo) FindByDate(ctx context.Context, date time.Time) (periods.Period, error) {
	for _, p := range r.periods {
		if p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, acctshared.ErrInvalidPeriod
}

type memMappingRepo struct {
	table map[string]map[mappings.Role]int64
}

func (r *memMappingRepo) Get(ctx context.Context, documentType string, role mappings.Role) (mappings.AccountMapping, error) {
	accountID, ok := r.table[documentType][role]
	if !ok {
		return mappings.AccountMapping{}, acctshared.ErrMappingNotFound
	}
	return mappings.AccountMapping{DocumentType: documentType, Role: role, AccountID: accountID}, nil
}

type memEntryRepo struct {
	entries map[uuid.UUID]ProposedEntry
	lines   map[uuid.UUID][]EntryLine
	docs    *memDocRepo
	seq     int64
}

func newMemEntryRepo(docs *memDocRepo) *memEntryRepo {
	return &memEntryRepo{
		entries: make(map[uuid.UUID]ProposedEntry),
		lines:   make(map[uuid.UUID][]EntryLine),
		docs:    docs,
	}
}

func (r *memEntryRepo) Get(ctx context.Context, id uuid.UUID) (ProposedEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return ProposedEntry{}, acctshared.ErrEntryNotFound
	}
	e.Lines = r.lines[id]
	return e, nil
}

func (r *memEntryRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]ProposedEntry, error) {
	var out []ProposedEntry
	for id, e := range r.entries {
		if e.DocumentID == documentID {
			e.Lines = r.lines[id]
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEntryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memEntryTx{repo: r})
}

type memEntryTx struct {
	repo *memEntryRepo
}

func (tx *memEntryTx) InsertEntry(ctx context.Context, entry ProposedEntry) (ProposedEntry, error) {
	tx.repo.seq++
	entry.Sequence = tx.repo.seq
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memEntryTx) InsertLines(ctx context.Context, entryID uuid.UUID, lines []EntryLine) error {
	tx.repo.lines[entryID] = lines
	return nil
}

func (tx *memEntryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (ProposedEntry, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memEntryTx) UpdateStatus(ctx context.Context, id uuid.UUID, from, to EntryStatus) error {
	e, ok := tx.repo.entries[id]
	if !ok {
		return acctshared.ErrEntryNotFound
	}
	if e.Status != from {
		return acctshared.ErrInvalidStatus
	}
	e.Status = to
	if to == EntryStatusPosted {
		now := time.Now()
		e.PostedAt = &now
	}
	tx.repo.entries[id] = e
	return nil
}

func (tx *memEntryTx) LockDocument(ctx context.Context, documentID uuid.UUID) error {
	doc, ok := tx.repo.docs.docs[documentID]
	if !ok {
		return shared.ErrNotFound
	}
	if doc.Status != documents.StatusCategorized && doc.Status != documents.StatusPendingReview {
		return shared.ErrDocumentLocked
	}
	doc.Status = documents.StatusPosted
	tx.repo.docs.docs[documentID] = doc
	return nil
}

// --- fixture ---

type fixture struct {
	svc      *Service
	docRepo  *memDocRepo
	fields   *memFieldRepo
	entries  *memEntryRepo
	accounts *memAccountRepo
	periods  *memPeriodRepo
	docID    uuid.UUID
}

func verifiedField(docID uuid.UUID, name fields.Name, value string) fields.Field {
	return fields.Field{
		ID:             uuid.New(),
		DocumentID:     docID,
		Name:           name,
		ExtractedValue: value,
		Confidence:     0.95,
		IsVerified:     true,
		Version:        1,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docRepo := &memDocRepo{docs: make(map[uuid.UUID]documents.Document)}
	docType := documents.TypeReceipt
	docID := uuid.New()
	docRepo.docs[docID] = documents.Document{
		ID:               docID,
		OriginalFilename: "receipt-042.pdf",
		Status:           documents.StatusCategorized,
		DocumentType:     &docType,
	}

	fieldRepo := &memFieldRepo{byDoc: map[uuid.UUID][]fields.Field{
		docID: {
			verifiedField(docID, fields.NameTotalAmount, "100.00"),
			verifiedField(docID, fields.NameTaxAmount, "10.00"),
			verifiedField(docID, fields.NameReceiptDate, "2026-03-15"),
			verifiedField(docID, fields.NameVendorName, "ACME Corp"),
		},
	}}

	accountRepo := &memAccountRepo{accounts: map[int64]accounts.Account{
		5000: {ID: 5000, Code: "5000", Name: "Office Expenses", Type: accounts.AccountTypeExpense, IsActive: true},
		1360: {ID: 1360, Code: "1360", Name: "Input VAT", Type: accounts.AccountTypeAsset, IsActive: true},
		2000: {ID: 2000, Code: "2000", Name: "Accounts Payable", Type: accounts.AccountTypeLiability, IsActive: true},
		9999: {ID: 9999, Code: "9999", Name: "Suspense (retired)", Type: accounts.AccountTypeExpense, IsActive: false},
	}}

	periodRepo := &memPeriodRepo{periods: []periods.Period{
		{
			ID:        1,
			Code:      "2026-03",
			StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			Status:    periods.PeriodStatusOpen,
		},
		{
			ID:        2,
			Code:      "2026-02",
			StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			Status:    periods.PeriodStatusClosed,
		},
	}}

	mappingRepo := &memMappingRepo{table: map[string]map[mappings.Role]int64{
		"RECEIPT": {
			mappings.RoleExpense:    5000,
			mappings.RoleTax:        1360,
			mappings.RoleSettlement: 2000,
		},
	}}

	entryRepo := newMemEntryRepo(docRepo)
	docService := documents.NewService(docRepo, nil)
	svc := NewService(entryRepo, docService, fieldRepo, accountRepo, periodRepo, mappingRepo, nil)

	return &fixture{
		svc:      svc,
		docRepo:  docRepo,
		fields:   fieldRepo,
		entries:  entryRepo,
		accounts: accountRepo,
		periods:  periodRepo,
		docID:    docID,
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- tests ---

func TestGenerateBuildsBalancedDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
	require.Equal(t, "alice", entry.CreatedBy)
	require.Len(t, entry.Lines, 3)

	require.True(t, entry.Lines[0].Debit.Equal(amount("90.00")), "expense is net of tax")
	require.EqualValues(t, 5000, entry.Lines[0].AccountID)
	require.True(t, entry.Lines[1].Debit.Equal(amount("10.00")))
	require.EqualValues(t, 1360, entry.Lines[1].AccountID)
	require.True(t, entry.Lines[2].Credit.Equal(amount("100.00")))
	require.EqualValues(t, 2000, entry.Lines[2].AccountID)

	debit, credit := Totals(entry.Lines)
	require.True(t, debit.Equal(credit))
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), entry.Date)
}

func TestGenerateRequiresVerifiedFields(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	list := fx.fields.byDoc[fx.docID]
	list[0].IsVerified = false
	fx.fields.byDoc[fx.docID] = list

	_, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.ErrorIs(t, err, acctshared.ErrFieldsUnverified)

	// The reviewer may explicitly accept low-confidence values.
	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice", AcceptLowConfidence: true})
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)
}

func TestGenerateRejectsNonNumericAmount(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	list := fx.fields.byDoc[fx.docID]
	list[0].ExtractedValue = "1,250"
	fx.fields.byDoc[fx.docID] = list

	_, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestGenerateLockedDocument(t *testing.T) {
	fx := newFixture(t)
	doc := fx.docRepo.docs[fx.docID]
	doc.Status = documents.StatusPosted
	fx.docRepo.docs[fx.docID] = doc

	_, err := fx.svc.Generate(context.Background(), GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.ErrorIs(t, err, shared.ErrDocumentLocked)
}

func TestValidateCleanEntry(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)

	validated, err := fx.svc.Validate(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusValidated, validated.Status)

	// Re-validation is a no-op.
	again, err := fx.svc.Validate(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusValidated, again.Status)
}

func TestValidateReportsEveryViolationAtOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	id := uuid.New()
	fx.entries.entries[id] = ProposedEntry{
		ID:         id,
		DocumentID: fx.docID,
		Date:       time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC), // no period covers this
		Status:     EntryStatusDraft,
	}
	fx.entries.lines[id] = []EntryLine{
		{AccountID: 12345, Debit: amount("100.00"), Credit: decimal.Zero, Position: 1},       // unknown account
		{AccountID: 9999, Debit: amount("5.00"), Credit: amount("5.00"), Position: 2},        // malformed + inactive
		{AccountID: 2000, Debit: decimal.Zero, Credit: amount("99.99"), Position: 3},          // unbalanced vs 105.00
	}

	_, err := fx.svc.Validate(ctx, id)
	v, ok := acctshared.AsValidation(err)
	require.True(t, ok, "expected aggregated validation error, got %v", err)
	require.Len(t, v.Rules, 5)

	var names []string
	for _, rule := range v.Rules {
		names = append(names, strings.SplitN(rule, ":", 2)[0])
	}
	require.Contains(t, names, acctshared.RuleUnbalanced)
	require.Contains(t, names, acctshared.RuleUnknownAccount)
	require.Contains(t, names, acctshared.RuleInactiveAccount)
	require.Contains(t, names, acctshared.RuleMalformedLine)
	require.Contains(t, names, acctshared.RuleNoPeriod)

	// Nothing advanced.
	stored, getErr := fx.svc.Get(ctx, id)
	require.NoError(t, getErr)
	require.Equal(t, EntryStatusDraft, stored.Status)
}

func TestValidatePennyImbalance(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	id := uuid.New()
	fx.entries.entries[id] = ProposedEntry{
		ID:         id,
		DocumentID: fx.docID,
		Date:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:     EntryStatusDraft,
	}
	fx.entries.lines[id] = []EntryLine{
		{AccountID: 5000, Debit: amount("100.00"), Credit: decimal.Zero, Position: 1},
		{AccountID: 2000, Debit: decimal.Zero, Credit: amount("99.99"), Position: 2},
	}

	_, err := fx.svc.Validate(ctx, id)
	v, ok := acctshared.AsValidation(err)
	require.True(t, ok)
	require.Len(t, v.Rules, 1, "a one-cent imbalance violates exactly the balance rule")
	require.Contains(t, v.Rules[0], acctshared.RuleUnbalanced)
	require.Contains(t, v.Rules[0], "0.01")
}

func TestValidateClosedPeriod(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	id := uuid.New()
	fx.entries.entries[id] = ProposedEntry{
		ID:         id,
		DocumentID: fx.docID,
		Date:       time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		Status:     EntryStatusDraft,
	}
	fx.entries.lines[id] = []EntryLine{
		{AccountID: 5000, Debit: amount("50.00"), Credit: decimal.Zero, Position: 1},
		{AccountID: 2000, Debit: decimal.Zero, Credit: amount("50.00"), Position: 2},
	}

	_, err := fx.svc.Validate(ctx, id)
	v, ok := acctshared.AsValidation(err)
	require.True(t, ok)
	require.Len(t, v.Rules, 1)
	require.Contains(t, v.Rules[0], acctshared.RuleClosedPeriod)
}

func TestPostLocksDocument(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)
	_, err = fx.svc.Validate(ctx, entry.ID)
	require.NoError(t, err)

	posted, err := fx.svc.Post(ctx, entry.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)

	doc := fx.docRepo.docs[fx.docID]
	require.Equal(t, documents.StatusPosted, doc.Status, "posting advances the document in the same transaction")

	// Posting is irreversible and unrepeatable.
	_, err = fx.svc.Post(ctx, entry.ID, "alice")
	require.ErrorIs(t, err, acctshared.ErrInvalidStatus)
	_, err = fx.svc.Reject(ctx, entry.ID, "alice", "changed my mind")
	require.ErrorIs(t, err, acctshared.ErrInvalidStatus)
}

func TestPostRequiresValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)

	_, err = fx.svc.Post(ctx, entry.ID, "alice")
	require.ErrorIs(t, err, acctshared.ErrInvalidStatus)
}

func TestRejectDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)

	rejected, err := fx.svc.Reject(ctx, entry.ID, "bob", "duplicate of an earlier upload")
	require.NoError(t, err)
	require.Equal(t, EntryStatusRejected, rejected.Status)

	doc := fx.docRepo.docs[fx.docID]
	require.Equal(t, documents.StatusCategorized, doc.Status, "rejection leaves the document untouched")
}

func TestGenerateWithoutTaxSkipsTaxLine(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	list := fx.fields.byDoc[fx.docID]
	var trimmed []fields.Field
	for _, f := range list {
		if f.Name != fields.NameTaxAmount {
			trimmed = append(trimmed, f)
		}
	}
	fx.fields.byDoc[fx.docID] = trimmed

	entry, err := fx.svc.Generate(ctx, GenerateInput{DocumentID: fx.docID, Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	require.True(t, entry.Lines[0].Debit.Equal(amount("100.00")))
	require.True(t, entry.Lines[1].Credit.Equal(amount("100.00")))
}
