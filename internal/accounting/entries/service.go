package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperledger/paperledger/internal/accounting/accounts"
	"github.com/paperledger/paperledger/internal/accounting/mappings"
	"github.com/paperledger/paperledger/internal/accounting/periods"
	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/fields"
	"github.com/paperledger/paperledger/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service generates proposed entries from finalized fields and enforces the
// balance and period invariants before an entry may be validated or posted.
type Service struct {
	repo       Repository
	docs       *documents.Service
	fieldsRepo fields.Repository
	accounts   accounts.Repository
	periods    periods.Repository
	mappings   mappings.Repository
	audit      AuditPort
	now        func() time.Time
}

func NewService(repo Repository, docs *documents.Service, fieldsRepo fields.Repository, accountsRepo accounts.Repository, periodsRepo periods.Repository, mappingsRepo mappings.Repository, audit AuditPort) *Service {
	return &Service{
		repo:       repo,
		docs:       docs,
		fieldsRepo: fieldsRepo,
		accounts:   accountsRepo,
		periods:    periodsRepo,
		mappings:   mappingsRepo,
		audit:      audit,
		now:        time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateInput groups parameters for entry generation. AcceptLowConfidence
// is the authorized override that lets unverified low-confidence fields
// through; without it every required field must be verified.
type GenerateInput struct {
	DocumentID          uuid.UUID
	Actor               string
	AcceptLowConfidence bool
	Memo                string
}

// requiredByType names the fields entry generation cannot proceed without.
var requiredByType = map[documents.DocumentType][]fields.Name{
	documents.TypeReceipt:   {fields.NameTotalAmount, fields.NameReceiptDate},
	documents.TypeInvoice:   {fields.NameTotalAmount, fields.NameReceiptDate},
	documents.TypeStatement: {fields.NameClosingBalance, fields.NamePeriodEnd},
}

// Generate maps a document's final field values to a DRAFT proposed entry
// using the document-type-to-account mapping table.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (ProposedEntry, error) {
	doc, err := s.docs.Get(ctx, input.DocumentID)
	if err != nil {
		return ProposedEntry{}, err
	}
	if doc.Status == documents.StatusPosted {
		return ProposedEntry{}, shared.ErrDocumentLocked
	}
	if doc.Status != documents.StatusCategorized && doc.Status != documents.StatusPendingReview {
		return ProposedEntry{}, fmt.Errorf("entries: %w: document is %s", shared.ErrInvalidTransition, doc.Status)
	}
	if doc.DocumentType == nil {
		return ProposedEntry{}, fmt.Errorf("entries: %w: document has no resolved type", shared.ErrInvalidValue)
	}
	if input.Actor == "" {
		return ProposedEntry{}, errors.New("entries: actor required")
	}

	docFields, err := s.fieldsRepo.ListByDocument(ctx, input.DocumentID)
	if err != nil {
		return ProposedEntry{}, err
	}
	byName := make(map[fields.Name]fields.Field, len(docFields))
	for _, f := range docFields {
		byName[f.Name] = f
	}

	var blocked []string
	for _, name := range requiredByType[*doc.DocumentType] {
		f, ok := byName[name]
		switch {
		case !ok:
			blocked = append(blocked, fmt.Sprintf("%s missing", name))
		case !f.IsVerified && !input.AcceptLowConfidence:
			blocked = append(blocked, fmt.Sprintf("%s unverified", name))
		}
	}
	if len(blocked) > 0 {
		return ProposedEntry{}, fmt.Errorf("%w: %s", acctshared.ErrFieldsUnverified, strings.Join(blocked, ", "))
	}

	total, err := amountField(byName, requiredByType[*doc.DocumentType][0])
	if err != nil {
		return ProposedEntry{}, err
	}
	tax := decimal.Zero
	if f, ok := byName[fields.NameTaxAmount]; ok {
		if tax, err = parseAmount(f.Name, f.FinalValue()); err != nil {
			return ProposedEntry{}, err
		}
	}
	date, err := dateField(byName, requiredByType[*doc.DocumentType][1])
	if err != nil {
		return ProposedEntry{}, err
	}

	docType := string(*doc.DocumentType)
	expense, err := s.mappings.Get(ctx, docType, mappings.RoleExpense)
	if err != nil {
		return ProposedEntry{}, err
	}
	settlement, err := s.mappings.Get(ctx, docType, mappings.RoleSettlement)
	if err != nil {
		return ProposedEntry{}, err
	}

	lines := []EntryLine{
		{AccountID: expense.AccountID, Debit: total.Sub(tax), Credit: decimal.Zero, Position: 1},
	}
	if tax.IsPositive() {
		taxMapping, err := s.mappings.Get(ctx, docType, mappings.RoleTax)
		if err != nil {
			return ProposedEntry{}, err
		}
		lines = append(lines, EntryLine{AccountID: taxMapping.AccountID, Debit: tax, Credit: decimal.Zero, Position: 2})
	}
	lines = append(lines, EntryLine{AccountID: settlement.AccountID, Debit: decimal.Zero, Credit: total, Position: len(lines) + 1})

	memo := input.Memo
	if memo == "" {
		memo = fmt.Sprintf("%s %s", docType, doc.OriginalFilename)
	}

	entry := ProposedEntry{
		ID:         uuid.New(),
		DocumentID: input.DocumentID,
		Date:       date,
		Memo:       memo,
		Status:     EntryStatusDraft,
		CreatedBy:  input.Actor,
		Lines:      lines,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		entry = inserted
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return ProposedEntry{}, err
	}
	s.record(ctx, input.Actor, "entry.generate", entry.ID, map[string]any{"document_id": input.DocumentID.String()})
	return entry, nil
}

// Validate applies every validation rule and reports all violations at once,
// so a reviewer fixes the entry in a single pass. A clean entry advances
// DRAFT → VALIDATED; re-validating a VALIDATED entry is a no-op.
func (s *Service) Validate(ctx context.Context, entryID uuid.UUID) (ProposedEntry, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return ProposedEntry{}, err
	}
	if entry.Status == EntryStatusValidated {
		return entry, nil
	}
	if entry.Status != EntryStatusDraft {
		return ProposedEntry{}, acctshared.ErrInvalidStatus
	}

	var rules []string
	if len(entry.Lines) < 2 {
		rules = append(rules, fmt.Sprintf("%s: entry has %d line(s), needs at least 2", acctshared.RuleTooFewLines, len(entry.Lines)))
	}
	for _, line := range entry.Lines {
		bothZero := line.Debit.IsZero() && line.Credit.IsZero()
		bothSet := !line.Debit.IsZero() && !line.Credit.IsZero()
		negative := line.Debit.IsNegative() || line.Credit.IsNegative()
		if bothZero || bothSet || negative {
			rules = append(rules, fmt.Sprintf("%s: line %d must have exactly one positive side", acctshared.RuleMalformedLine, line.Position))
		}
	}
	debit, credit := Totals(entry.Lines)
	if !debit.Equal(credit) {
		rules = append(rules, fmt.Sprintf("%s: debit %s != credit %s (diff %s)", acctshared.RuleUnbalanced, debit, credit, debit.Sub(credit).Abs()))
	}
	for _, line := range entry.Lines {
		account, err := s.accounts.Get(ctx, line.AccountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				rules = append(rules, fmt.Sprintf("%s: account %d", acctshared.RuleUnknownAccount, line.AccountID))
				continue
			}
			return ProposedEntry{}, err
		}
		if !account.IsActive {
			rules = append(rules, fmt.Sprintf("%s: account %s", acctshared.RuleInactiveAccount, account.Code))
		}
	}
	period, err := s.periods.FindByDate(ctx, entry.Date)
	if err != nil {
		if errors.Is(err, acctshared.ErrInvalidPeriod) {
			rules = append(rules, fmt.Sprintf("%s: no accounting period covers %s", acctshared.RuleNoPeriod, entry.Date.Format("2006-01-02")))
		} else {
			return ProposedEntry{}, err
		}
	} else if period.Status != periods.PeriodStatusOpen {
		rules = append(rules, fmt.Sprintf("%s: period %s is %s", acctshared.RuleClosedPeriod, period.Code, period.Status))
	}

	if len(rules) > 0 {
		return ProposedEntry{}, &acctshared.ValidationError{Rules: rules}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, entryID, EntryStatusDraft, EntryStatusValidated)
	})
	if err != nil {
		return ProposedEntry{}, err
	}
	entry.Status = EntryStatusValidated
	return entry, nil
}

// Post performs the explicit, irreversible VALIDATED → POSTED action. The
// parent document advances to POSTED in the same transaction, which locks its
// fields against further correction.
func (s *Service) Post(ctx context.Context, entryID uuid.UUID, actor string) (ProposedEntry, error) {
	if actor == "" {
		return ProposedEntry{}, errors.New("entries: actor required")
	}
	var entry ProposedEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusValidated {
			return acctshared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, entryID, EntryStatusValidated, EntryStatusPosted); err != nil {
			return err
		}
		if err := tx.LockDocument(ctx, current.DocumentID); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusPosted
		return nil
	})
	if err != nil {
		return ProposedEntry{}, err
	}
	s.record(ctx, actor, "entry.post", entry.ID, map[string]any{
		"document_id": entry.DocumentID.String(),
		"sequence":    entry.Sequence,
	})
	return entry, nil
}

// Reject discards a DRAFT entry.
func (s *Service) Reject(ctx context.Context, entryID uuid.UUID, actor, reason string) (ProposedEntry, error) {
	var entry ProposedEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return acctshared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, entryID, EntryStatusDraft, EntryStatusRejected); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusRejected
		return nil
	})
	if err != nil {
		return ProposedEntry{}, err
	}
	s.record(ctx, actor, "entry.reject", entry.ID, map[string]any{"reason": reason})
	return entry, nil
}

func (s *Service) Get(ctx context.Context, entryID uuid.UUID) (ProposedEntry, error) {
	return s.repo.Get(ctx, entryID)
}

func (s *Service) record(ctx context.Context, actor, action string, entryID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "proposed_entry",
		EntityID: entryID.String(),
		Meta:     meta,
		At:       s.now(),
	})
}

func amountField(byName map[fields.Name]fields.Field, name fields.Name) (decimal.Decimal, error) {
	f, ok := byName[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("entries: %w: field %s", shared.ErrNotFound, name)
	}
	return parseAmount(name, f.FinalValue())
}

func parseAmount(name fields.Name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("entries: %w: %s value %q is not a numeric amount", shared.ErrInvalidValue, name, value)
	}
	return d, nil
}

func dateField(byName map[fields.Name]fields.Field, name fields.Name) (time.Time, error) {
	f, ok := byName[name]
	if !ok {
		return time.Time{}, fmt.Errorf("entries: %w: field %s", shared.ErrNotFound, name)
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(f.FinalValue()))
	if err != nil {
		return time.Time{}, fmt.Errorf("entries: %w: %s value %q is not a date", shared.ErrInvalidValue, name, f.FinalValue())
	}
	return t, nil
}
