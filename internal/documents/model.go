package documents

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates document lifecycle values.
type Status string

const (
	StatusUploaded      Status = "UPLOADED"
	StatusClassifying   Status = "CLASSIFYING"
	StatusUnrecognized  Status = "UNRECOGNIZED"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusCategorized   Status = "CATEGORIZED"
	StatusPosted        Status = "POSTED"
)

// DocumentType enumerates the document categories the pipeline understands.
type DocumentType string

const (
	TypeReceipt   DocumentType = "RECEIPT"
	TypeInvoice   DocumentType = "INVOICE"
	TypeStatement DocumentType = "BANK_STATEMENT"
)

// KnownType reports whether t is a category the pipeline can process.
func KnownType(t DocumentType) bool {
	switch t {
	case TypeReceipt, TypeInvoice, TypeStatement:
		return true
	}
	return false
}

// transitions is the closed table of allowed status advances. Statuses are
// monotonically advanced; a reverted document is a new upload, never a
// backwards transition.
var transitions = map[Status][]Status{
	StatusUploaded:      {StatusClassifying},
	StatusClassifying:   {StatusUnrecognized, StatusPendingReview, StatusCategorized},
	StatusUnrecognized:  {StatusPendingReview, StatusCategorized},
	StatusPendingReview: {StatusCategorized, StatusPosted},
	StatusCategorized:   {StatusPosted},
	StatusPosted:        {},
}

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the status table allows from → to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Document captures metadata and lifecycle state for a scanned document.
type Document struct {
	ID                 uuid.UUID
	OriginalFilename   string
	ContentRef         string
	Status             Status
	DocumentType       *DocumentType
	UnrecognizedReason *string
	AIConfidenceScore  float64
	AIWarnings         []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Classified reports whether the document already carries a type.
func (d Document) Classified() bool {
	return d.DocumentType != nil
}
