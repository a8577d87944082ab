// Package analysis runs a full patient analysis: load, optional generated
// report, scoring and persistence.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/polyrisk/polyrisk-api/aireport"
	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/interfaces"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/polyrisk/polyrisk-api/metrics"
	"github.com/polyrisk/polyrisk-api/risk"
)

var _ interfaces.Analyzer = (*Service)(nil)

const DefaultReportTimeout = 90 * time.Second

type Service struct {
	repo          interfaces.PatientRepository
	scorer        *risk.Scorer
	generator     interfaces.ReportGenerator
	reportTimeout time.Duration
	now           func() time.Time
}

// NewService wires the analysis dependencies. A nil generator disables
// generated reports.
func NewService(repo interfaces.PatientRepository, scorer *risk.Scorer, generator interfaces.ReportGenerator, reportTimeout time.Duration) *Service {
	if scorer == nil {
		scorer = risk.NewScorer()
	}
	if generator == nil {
		generator = aireport.Unconfigured{}
	}
	if reportTimeout <= 0 {
		reportTimeout = DefaultReportTimeout
	}
	return &Service{
		repo:          repo,
		scorer:        scorer,
		generator:     generator,
		reportTimeout: reportTimeout,
		now:           time.Now,
	}
}

// Analyze scores a stored patient and records the result. The policy is
// checked before any call to the generative service.
func (s *Service) Analyze(ctx context.Context, patientID string, policy risk.PolicyName, withReport bool) (entities.Analysis, error) {
	if _, err := s.scorer.Lookup(policy); err != nil {
		return entities.Analysis{}, err
	}

	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return entities.Analysis{}, err
	}

	breakdown, err := s.scorer.Score(policy, patient, nil)
	if err != nil {
		return entities.Analysis{}, err
	}

	report := entities.AIReport{Status: entities.ReportSkipped}
	if withReport {
		var signals []risk.InteractionSignal
		report, signals = s.generateReport(ctx, patient, breakdown)
		// Interaction terms only change the score when the reply carried some.
		if len(signals) > 0 {
			breakdown, err = s.scorer.Score(policy, patient, signals)
			if err != nil {
				return entities.Analysis{}, err
			}
		}
	}

	metrics.RecordRiskScore(breakdown.Policy, string(breakdown.Level))

	analysis := entities.Analysis{
		ID:          uuid.NewString(),
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Age:         patient.Age,
		Medications: len(patient.Medications),
		Breakdown:   breakdown,
		Report:      report,
		CreatedAt:   s.now(),
	}
	if err := s.repo.SaveAnalysis(ctx, &analysis); err != nil {
		return entities.Analysis{}, fmt.Errorf("failed to save analysis: %w", err)
	}

	logging.Info("Patient analyzed",
		"patient_id", patient.ID,
		"analysis_id", analysis.ID,
		"policy", breakdown.Policy,
		"score", breakdown.Total,
		"level", breakdown.Level,
		"report", report.Status)

	return analysis, nil
}

// generateReport never fails: an unreachable service or an unusable reply
// is recorded on the report and scoring continues without interaction terms.
// base is the breakdown without interaction signals, quoted in the prompt.
func (s *Service) generateReport(ctx context.Context, patient entities.Patient, base entities.RiskBreakdown) (entities.AIReport, []risk.InteractionSignal) {
	prompt, err := aireport.BuildPrompt(patient, base)
	if err != nil {
		return entities.AIReport{Status: entities.ReportUnavailable, Error: err.Error()}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.reportTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logging.Warn("Generated report unavailable", "patient_id", patient.ID, "error", err)
		metrics.RecordReportResult(entities.ReportUnavailable)
		return entities.AIReport{Status: entities.ReportUnavailable, Error: err.Error()}, nil
	}

	parsed := risk.ParseReport(text)
	result := parsed.ToEntity()
	metrics.RecordReportResult(result.Status)
	if !parsed.Parsed {
		logging.Warn("Generated report could not be parsed", "patient_id", patient.ID, "length", len(text))
	}
	return result, parsed.InteractionSignals()
}

// ScorePatient scores a patient that is not stored. A non-empty reportText
// is parsed for interaction signals.
func (s *Service) ScorePatient(policy risk.PolicyName, patient entities.Patient, reportText string) (entities.RiskBreakdown, error) {
	var signals []risk.InteractionSignal
	if reportText != "" {
		signals = risk.ParseReport(reportText).InteractionSignals()
	}

	breakdown, err := s.scorer.Score(policy, patient, signals)
	if err != nil {
		return entities.RiskBreakdown{}, err
	}
	metrics.RecordRiskScore(breakdown.Policy, string(breakdown.Level))
	return breakdown, nil
}
