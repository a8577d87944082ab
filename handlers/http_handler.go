// Package handlers provides the HTTP handlers for the polyrisk API: patient
// records, risk analyses, analytics and the interaction dataset.
package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/polyrisk/polyrisk-api/analytics"
	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/interfaces"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/polyrisk/polyrisk-api/risk"
	"github.com/polyrisk/polyrisk-api/store"
)

const (
	pageSize            = 10
	defaultAnalysisList = 50
	maxAnalysisList     = 500

	msgPolicyRequired = "policy is required"
)

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore interfaces.DataStore
	validator interfaces.DataValidator
	repo      interfaces.PatientRepository
	analyzer  interfaces.Analyzer
	health    interfaces.HealthChecker
	startTime time.Time
	now       func() time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// dataStore may be nil when no interaction pipeline is configured.
func NewHTTPHandler(
	dataStore interfaces.DataStore,
	validator interfaces.DataValidator,
	repo interfaces.PatientRepository,
	analyzer interfaces.Analyzer,
	health interfaces.HealthChecker,
) *HTTPHandlerImpl {
	startTime := time.Now()
	if dataStore != nil && !dataStore.GetServerStartTime().IsZero() {
		startTime = dataStore.GetServerStartTime()
	}
	return &HTTPHandlerImpl{
		dataStore: dataStore,
		validator: validator,
		repo:      repo,
		analyzer:  analyzer,
		health:    health,
		startTime: startTime,
		now:       time.Now,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Details       map[string]any `json:"details"`
	System        map[string]any `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, code := h.health.HealthCheck(r.Context())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := h.now().Sub(h.startTime)

	RespondWithJSON(w, code, HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Details:       details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// respondWithStoreError maps repository and scoring errors to status codes.
func (h *HTTPHandlerImpl) respondWithStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, notFound)
	case errors.Is(err, risk.ErrPolicyAmbiguity):
		RespondWithError(w, http.StatusBadRequest, msgPolicyRequired)
	case errors.Is(err, risk.ErrUnknownPolicy):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error("Request failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// normalizePatient trims the fields that are matched case-insensitively later.
func normalizePatient(p *entities.Patient) {
	p.Name = strings.TrimSpace(p.Name)
	p.KidneyFunction = strings.ToLower(strings.TrimSpace(p.KidneyFunction))
	p.LiverFunction = strings.ToLower(strings.TrimSpace(p.LiverFunction))
	for i := range p.Medications {
		p.Medications[i].Name = strings.TrimSpace(p.Medications[i].Name)
	}
}

// CreatePatient stores a posted patient and returns it with its id
func (h *HTTPHandlerImpl) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if code, err := decodeJSON(r, &patient); err != nil {
		RespondWithError(w, code, err.Error())
		return
	}

	normalizePatient(&patient)
	if err := h.validator.ValidatePatient(&patient); err != nil {
		logging.Warn("Rejected patient", "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.SavePatient(r.Context(), &patient); err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}

	RespondWithJSON(w, http.StatusCreated, patient)
}

func (h *HTTPHandlerImpl) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListPatients(r.Context())
	if err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}
	if patients == nil {
		patients = []entities.Patient{}
	}
	RespondWithJSON(w, http.StatusOK, patients)
}

func (h *HTTPHandlerImpl) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.repo.GetPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, patient)
}

// ClearPatients deletes every patient and analysis
func (h *HTTPHandlerImpl) ClearPatients(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Clear(r.Context()); err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}
	logging.Info("Patient repository cleared")
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// AnalyzePatient scores a stored patient with the requested policy.
// ?report=true asks the generative service for a report first.
func (h *HTTPHandlerImpl) AnalyzePatient(w http.ResponseWriter, r *http.Request) {
	policy := strings.TrimSpace(r.URL.Query().Get("policy"))
	if policy == "" {
		RespondWithError(w, http.StatusBadRequest, msgPolicyRequired)
		return
	}

	withReport := false
	if raw := r.URL.Query().Get("report"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid report flag")
			return
		}
		withReport = v
	}

	analysis, err := h.analyzer.Analyze(r.Context(), chi.URLParam(r, "id"), risk.PolicyName(policy), withReport)
	if err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}

	RespondWithJSON(w, http.StatusCreated, analysis)
}

// ListAnalyses returns analyses newest first, ?limit= bounded to 500
func (h *HTTPHandlerImpl) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultAnalysisList
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(v, maxAnalysisList)
	}

	analyses, err := h.repo.ListAnalyses(r.Context(), limit)
	if err != nil {
		h.respondWithStoreError(w, err, "Analysis not found")
		return
	}
	if analyses == nil {
		analyses = []entities.Analysis{}
	}
	RespondWithJSON(w, http.StatusOK, analyses)
}

func (h *HTTPHandlerImpl) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.repo.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithStoreError(w, err, "Analysis not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, analysis)
}

type scoreRequest struct {
	entities.Patient
	ReportText string `json:"report_text"`
}

// ScorePatient scores a posted patient without storing anything
func (h *HTTPHandlerImpl) ScorePatient(w http.ResponseWriter, r *http.Request) {
	policy := strings.TrimSpace(r.URL.Query().Get("policy"))
	if policy == "" {
		RespondWithError(w, http.StatusBadRequest, msgPolicyRequired)
		return
	}

	var req scoreRequest
	if code, err := decodeJSON(r, &req); err != nil {
		RespondWithError(w, code, err.Error())
		return
	}

	normalizePatient(&req.Patient)
	if err := h.validator.ValidatePatient(&req.Patient); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	breakdown, err := h.analyzer.ScorePatient(risk.PolicyName(policy), req.Patient, req.ReportText)
	if err != nil {
		h.respondWithStoreError(w, err, "Patient not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, breakdown)
}

// ServeStats returns repository counters
func (h *HTTPHandlerImpl) ServeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		h.respondWithStoreError(w, err, "Stats not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

// ServeAnalytics computes live analytics over every stored analysis,
// optionally restricted with ?policy=.
func (h *HTTPHandlerImpl) ServeAnalytics(w http.ResponseWriter, r *http.Request) {
	policy := risk.PolicyName(strings.TrimSpace(r.URL.Query().Get("policy")))
	analyses, err := h.repo.ListAnalyses(r.Context(), 0)
	if err != nil {
		h.respondWithStoreError(w, err, "Analytics not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, analytics.Compute(analyses, policy, h.now()))
}

// datasetReady answers 503 when no dataset is being served.
func (h *HTTPHandlerImpl) datasetReady(w http.ResponseWriter) bool {
	if h.dataStore == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Interaction dataset is not configured")
		return false
	}
	if h.dataStore.GetDataset() == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Interaction dataset is not loaded yet")
		return false
	}
	return true
}

// ServePagedInteractions returns paginated interaction rows
func (h *HTTPHandlerImpl) ServePagedInteractions(w http.ResponseWriter, r *http.Request) {
	pageNumber := chi.URLParam(r, "page")
	page, err := strconv.Atoi(pageNumber)
	if err != nil || page < 1 {
		logging.Warn("Unusual user input", "page", pageNumber)
		RespondWithError(w, http.StatusBadRequest, "Invalid page number")
		return
	}

	if !h.datasetReady(w) {
		return
	}

	rows := h.dataStore.GetRows()
	start := (page - 1) * pageSize
	if start >= len(rows) {
		RespondWithError(w, http.StatusNotFound, "Page not found")
		return
	}
	end := min(start+pageSize, len(rows))

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"data":       rows[start:end],
		"page":       page,
		"pageSize":   pageSize,
		"totalItems": len(rows),
		"maxPage":    (len(rows) + pageSize - 1) / pageSize,
	})
}

// FindInteractionsByDrug returns every row naming the drug
func (h *HTTPHandlerImpl) FindInteractionsByDrug(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing drug name")
		return
	}

	if err := h.validator.ValidateInput(name); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.datasetReady(w) {
		return
	}

	// Always 200 with an array, empty when the drug is unknown
	RespondWithJSON(w, http.StatusOK, h.dataStore.FindByDrug(name))
}

// ServeDatasetStats returns the counters of the last build and its quality report
func (h *HTTPHandlerImpl) ServeDatasetStats(w http.ResponseWriter, r *http.Request) {
	if !h.datasetReady(w) {
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"build":       h.dataStore.GetDataset(),
		"quality":     h.dataStore.GetQualityReport(),
		"lastUpdated": h.dataStore.GetLastUpdated().Format(time.RFC3339),
		"isUpdating":  h.dataStore.IsUpdating(),
	})
}
