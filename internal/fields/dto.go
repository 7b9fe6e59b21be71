package fields

import "time"

// CorrectRequest is the payload for a field correction.
type CorrectRequest struct {
	Value           string  `json:"value" validate:"required"`
	Note            *string `json:"note"`
	Actor           string  `json:"actor"`
	ExpectedVersion int64   `json:"expected_version"`
}

// VerifyRequest is the payload for accepting an extracted value as-is.
type VerifyRequest struct {
	Actor           string `json:"actor"`
	ExpectedVersion int64  `json:"expected_version"`
}

// FieldResponse is the wire representation of an extracted field.
type FieldResponse struct {
	ID             string      `json:"id"`
	FieldName      string      `json:"field_name"`
	ExtractedValue string      `json:"extracted_value"`
	CorrectedValue *string     `json:"corrected_value"`
	FinalValue     string      `json:"final_value"`
	Confidence     float64     `json:"confidence"`
	BoundingBox    BoundingBox `json:"bounding_box"`
	IsVerified     bool        `json:"is_verified"`
	NeedsReview    bool        `json:"needs_review"`
	Version        int64       `json:"version"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ListResponse wraps a document's fields with the derived aggregate confidence.
type ListResponse struct {
	DocumentID          string          `json:"document_id"`
	AggregateConfidence float64         `json:"aggregate_confidence"`
	Fields              []FieldResponse `json:"fields"`
}

// ToFieldResponse converts a field to wire form, deriving final_value and
// needs_review against the supplied review threshold.
func ToFieldResponse(f Field, reviewThreshold float64) FieldResponse {
	return FieldResponse{
		ID:             f.ID.String(),
		FieldName:      string(f.Name),
		ExtractedValue: f.ExtractedValue,
		CorrectedValue: f.CorrectedValue,
		FinalValue:     f.FinalValue(),
		Confidence:     f.Confidence,
		BoundingBox:    f.BoundingBox,
		IsVerified:     f.IsVerified,
		NeedsReview:    f.NeedsReview(reviewThreshold),
		Version:        f.Version,
		UpdatedAt:      f.UpdatedAt,
	}
}

// HistoryResponse is the wire representation of a correction history entry.
type HistoryResponse struct {
	ID        int64     `json:"id"`
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Actor     string    `json:"actor"`
	Note      *string   `json:"note"`
	At        time.Time `json:"at"`
}
