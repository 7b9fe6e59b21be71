package reports

import (
	"encoding/json"
	"time"
)

// ReportResponse is the wire representation of a report snapshot. Data holds
// the builder output as stored; it is null until the first successful
// generation completes.
type ReportResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Version       int64           `json:"version"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	ViewCount     int64           `json:"view_count"`
	GeneratedAt   *time.Time      `json:"generated_at,omitempty"`
	Data          json.RawMessage `json:"data"`
}

func ToReportResponse(rep Report) ReportResponse {
	data := rep.CachedData
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return ReportResponse{
		ID:            rep.ID.String(),
		Type:          string(rep.Type),
		PeriodStart:   rep.PeriodStart.Format("2006-01-02"),
		PeriodEnd:     rep.PeriodEnd.Format("2006-01-02"),
		Version:       rep.Version,
		Status:        string(rep.Status),
		FailureReason: rep.FailureReason,
		ViewCount:     rep.ViewCount,
		GeneratedAt:   rep.GeneratedAt,
		Data:          data,
	}
}
