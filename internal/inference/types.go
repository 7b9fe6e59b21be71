package inference

// ClassifyRequest identifies the document content to classify.
type ClassifyRequest struct {
	DocumentID string `json:"document_id"`
	ContentRef string `json:"content_ref"`
}

// ClassifyResult is the classification service response.
type ClassifyResult struct {
	DocumentType string   `json:"document_type"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings"`
}

// ExtractRequest identifies the document content to run field extraction on.
type ExtractRequest struct {
	DocumentID   string `json:"document_id"`
	ContentRef   string `json:"content_ref"`
	DocumentType string `json:"document_type"`
}

// ExtractedValue is one field produced by the extraction service. The bounding
// box is exchanged as [x, y, width, height] in source-pixel units and stored
// verbatim; display scaling is a consumer concern.
type ExtractedValue struct {
	FieldName   string     `json:"field_name"`
	Value       string     `json:"value"`
	Confidence  float64    `json:"confidence"`
	BoundingBox [4]float64 `json:"bounding_box"`
}

// ExtractResult is the extraction service response.
type ExtractResult struct {
	Fields   []ExtractedValue `json:"fields"`
	Warnings []string         `json:"warnings"`
}
