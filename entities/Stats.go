package entities

import "time"

// RepositoryStats summarizes stored patients and analyses.
type RepositoryStats struct {
	TotalPatients     int        `json:"total_patients"`
	TotalAnalyses     int        `json:"total_analyses"`
	PolypharmacyCases int        `json:"polypharmacy_cases"`
	AverageAge        float64    `json:"average_age"`
	LastAnalysisAt    *time.Time `json:"last_analysis_at,omitempty"`
}
