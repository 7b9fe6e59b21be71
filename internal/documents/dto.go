package documents

import "time"

// RegisterRequest is the payload for document metadata registration.
type RegisterRequest struct {
	OriginalFilename string `json:"original_filename" validate:"required"`
	ContentRef       string `json:"content_ref"`
}

// Response is the wire representation of a document.
type Response struct {
	ID                 string   `json:"id"`
	OriginalFilename   string   `json:"original_filename"`
	Status             string   `json:"status"`
	DocumentType       *string  `json:"document_type"`
	UnrecognizedReason *string  `json:"unrecognized_reason"`
	AIConfidenceScore  float64  `json:"ai_confidence_score"`
	AIWarnings         []string `json:"ai_warnings"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToResponse converts a document to its wire form.
func ToResponse(d Document) Response {
	resp := Response{
		ID:                 d.ID.String(),
		OriginalFilename:   d.OriginalFilename,
		Status:             string(d.Status),
		UnrecognizedReason: d.UnrecognizedReason,
		AIConfidenceScore:  d.AIConfidenceScore,
		AIWarnings:         d.AIWarnings,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if resp.AIWarnings == nil {
		resp.AIWarnings = []string{}
	}
	if d.DocumentType != nil {
		t := string(*d.DocumentType)
		resp.DocumentType = &t
	}
	return resp
}
