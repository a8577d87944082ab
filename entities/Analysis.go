package entities

import (
	"encoding/json"
	"time"
)

// Report states recorded on an analysis.
const (
	ReportSkipped     = "skipped"
	ReportParsed      = "parsed"
	ReportUnparsed    = "unparsed"
	ReportUnavailable = "unavailable"
)

// Analysis is a persisted scoring run for one patient.
type Analysis struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patient_id"`
	PatientName string        `json:"patient_name"`
	Age         int           `json:"age"`
	Medications int           `json:"medications"`
	Breakdown   RiskBreakdown `json:"breakdown"`
	Report      AIReport      `json:"report"`
	CreatedAt   time.Time     `json:"created_at"`
}

// AIReport keeps what came back from the generative service. Content holds the
// extracted JSON when it parsed, RawText the full reply otherwise.
type AIReport struct {
	Status       string          `json:"status"`
	Content      json.RawMessage `json:"content,omitempty"`
	RawText      string          `json:"raw_text,omitempty"`
	Interactions int             `json:"interactions"`
	Error        string          `json:"error,omitempty"`
}
