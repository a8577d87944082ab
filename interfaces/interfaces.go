// Package interfaces defines the contracts between the polyrisk packages so
// that storage, scheduling and the generative service can be swapped in tests.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/risk"
)

// DataQualityReport summarizes anomalies found in a built interaction dataset.
type DataQualityReport struct {
	TotalRows              int      `json:"totalRows"`
	MatchedRows            int      `json:"matchedRows"`
	UnmatchedRows          int      `json:"unmatchedRows"`
	SelfPairs              int      `json:"selfPairs"`
	DuplicatePairs         []string `json:"duplicatePairs"`
	CompoundsWithoutName   int      `json:"compoundsWithoutName"`
	DuplicateCompoundNames []string `json:"duplicateCompoundNames"`
	MatchRate              float64  `json:"matchRate"`
}

// DataStore holds the interaction dataset currently served. Readers never
// block; a rebuild swaps the whole dataset at once.
type DataStore interface {
	GetDataset() *interactions.Dataset
	GetRows() []entities.InteractionRow
	FindByDrug(name string) []entities.InteractionRow
	GetQualityReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateData(dataset *interactions.Dataset, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// DatasetBuilder produces a fresh interaction dataset from the configured sources.
type DatasetBuilder interface {
	Build(ctx context.Context) (*interactions.Dataset, error)
}

// Scheduler runs the periodic dataset rebuild.
type Scheduler interface {
	Start() error
	Stop()
}

// PatientRepository persists patients and their analyses. Writes to the same
// id are last-write-wins.
type PatientRepository interface {
	SavePatient(ctx context.Context, p *entities.Patient) error
	GetPatient(ctx context.Context, id string) (entities.Patient, error)
	ListPatients(ctx context.Context) ([]entities.Patient, error)
	SaveAnalysis(ctx context.Context, a *entities.Analysis) error
	GetAnalysis(ctx context.Context, id string) (entities.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]entities.Analysis, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (entities.RepositoryStats, error)
	Ping(ctx context.Context) error
}

// ReportGenerator turns a prompt into the generative service's reply.
type ReportGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyzer scores patients, optionally with a generated report.
type Analyzer interface {
	Analyze(ctx context.Context, patientID string, policy risk.PolicyName, withReport bool) (entities.Analysis, error)
	ScorePatient(policy risk.PolicyName, patient entities.Patient, reportText string) (entities.RiskBreakdown, error)
}

// HTTPHandler lists the API endpoints.
type HTTPHandler interface {
	HealthCheck(w http.ResponseWriter, r *http.Request)

	CreatePatient(w http.ResponseWriter, r *http.Request)
	ListPatients(w http.ResponseWriter, r *http.Request)
	GetPatient(w http.ResponseWriter, r *http.Request)
	ClearPatients(w http.ResponseWriter, r *http.Request)
	AnalyzePatient(w http.ResponseWriter, r *http.Request)
	ListAnalyses(w http.ResponseWriter, r *http.Request)
	GetAnalysis(w http.ResponseWriter, r *http.Request)
	ScorePatient(w http.ResponseWriter, r *http.Request)
	ServeStats(w http.ResponseWriter, r *http.Request)
	ServeAnalytics(w http.ResponseWriter, r *http.Request)

	ServePagedInteractions(w http.ResponseWriter, r *http.Request)
	FindInteractionsByDrug(w http.ResponseWriter, r *http.Request)
	ServeDatasetStats(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health along with the HTTP status to answer with.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
	CalculateNextUpdate() time.Time
}

// DataValidator checks user input and built datasets.
type DataValidator interface {
	ValidatePatient(p *entities.Patient) error
	ValidateInput(input string) error
	ValidateDataset(dataset *interactions.Dataset) error
	ReportDataQuality(dataset *interactions.Dataset) *DataQualityReport
}
