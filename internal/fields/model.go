// Package fields holds extracted field records and the correction ledger over
// them. Extracted values are written once by extraction; corrected values come
// from humans; the final value is always derived, never stored.
package fields

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/shared"
)

// Name identifies a field from the closed vocabulary.
type Name string

const (
	NameVendorName      Name = "vendor_name"
	NameReceiptDate     Name = "receipt_date"
	NameTotalAmount     Name = "total_amount"
	NameTaxAmount       Name = "tax_amount"
	NameCurrency        Name = "currency"
	NameInvoiceNumber   Name = "invoice_number"
	NameDueDate         Name = "due_date"
	NameAccountNumber   Name = "account_number"
	NamePeriodStart     Name = "period_start"
	NamePeriodEnd       Name = "period_end"
	NameClosingBalance  Name = "closing_balance"
)

// Shape constrains the expected format of a field value.
type Shape string

const (
	ShapeText   Shape = "text"
	ShapeAmount Shape = "amount"
	ShapeDate   Shape = "date"
)

var vocabulary = map[Name]Shape{
	NameVendorName:     ShapeText,
	NameReceiptDate:    ShapeDate,
	NameTotalAmount:    ShapeAmount,
	NameTaxAmount:      ShapeAmount,
	NameCurrency:       ShapeText,
	NameInvoiceNumber:  ShapeText,
	NameDueDate:        ShapeDate,
	NameAccountNumber:  ShapeText,
	NamePeriodStart:    ShapeDate,
	NamePeriodEnd:      ShapeDate,
	NameClosingBalance: ShapeAmount,
}

// expectedByType lists the fields the extractor asks for per document type.
var expectedByType = map[documents.DocumentType][]Name{
	documents.TypeReceipt:   {NameVendorName, NameReceiptDate, NameTotalAmount, NameTaxAmount, NameCurrency},
	documents.TypeInvoice:   {NameVendorName, NameInvoiceNumber, NameReceiptDate, NameDueDate, NameTotalAmount, NameTaxAmount, NameCurrency},
	documents.TypeStatement: {NameAccountNumber, NamePeriodStart, NamePeriodEnd, NameClosingBalance, NameCurrency},
}

// KnownName reports whether name belongs to the vocabulary.
func KnownName(name Name) bool {
	_, ok := vocabulary[name]
	return ok
}

// ExpectedFields returns the vocabulary subset for a document type.
func ExpectedFields(t documents.DocumentType) []Name {
	return expectedByType[t]
}

// ValidateValue checks a value against the field's expected shape.
func ValidateValue(name Name, value string) error {
	shape, ok := vocabulary[name]
	if !ok {
		return fmt.Errorf("fields: %w: unknown field %q", shared.ErrNotFound, name)
	}
	switch shape {
	case ShapeAmount:
		if _, err := decimal.NewFromString(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("fields: %w: %q is not a numeric amount", shared.ErrInvalidValue, value)
		}
	case ShapeDate:
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("fields: %w: %q is not a date (YYYY-MM-DD)", shared.ErrInvalidValue, value)
		}
	}
	return nil
}

// BoundingBox locates a field on the source image, in source-pixel units.
// It is serialised as [x, y, width, height].
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.Width, b.Height})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	b.X, b.Y, b.Width, b.Height = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// Field is one extracted field belonging to exactly one document.
type Field struct {
	ID             uuid.UUID
	DocumentID     uuid.UUID
	Name           Name
	ExtractedValue string
	CorrectedValue *string
	Confidence     float64
	BoundingBox    BoundingBox
	IsVerified     bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FinalValue derives the value downstream consumers see: the corrected value
// when present, otherwise the extracted one.
func (f Field) FinalValue() string {
	if f.CorrectedValue != nil {
		return *f.CorrectedValue
	}
	return f.ExtractedValue
}

// NeedsReview reports whether the field still requires human verification.
// It can never be true for a verified field.
func (f Field) NeedsReview(threshold float64) bool {
	return f.Confidence < threshold && !f.IsVerified
}

// AggregateConfidence is the mean of per-field confidences, recomputed on
// read rather than stored.
func AggregateConfidence(list []Field) float64 {
	if len(list) == 0 {
		return 0
	}
	var sum float64
	for _, f := range list {
		sum += f.Confidence
	}
	return sum / float64(len(list))
}

// HistoryEntry is one append-only record of a human correction.
type HistoryEntry struct {
	ID         int64
	DocumentID uuid.UUID
	FieldID    uuid.UUID
	FieldName  Name
	OldValue   string
	NewValue   string
	Actor      string
	Note       *string
	At         time.Time
}
