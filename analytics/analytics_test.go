package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/risk"
)

func analysisAt(id string, age int, score float64, at time.Time) entities.Analysis {
	return entities.Analysis{
		ID:          id,
		PatientName: "patient-" + id,
		Age:         age,
		Breakdown:   entities.RiskBreakdown{Policy: "policy-b", Total: score, Level: risk.LevelB(score)},
		CreatedAt:   at,
	}
}

func TestComputeEmpty(t *testing.T) {
	a := Compute(nil, "", time.Now())
	if a.TotalAnalyses != 0 || len(a.AvgRiskScore) != 0 {
		t.Errorf("Expected zero analytics, got %+v", a)
	}
	if a.RecentReports == nil || a.MonthlyTrends == nil {
		t.Error("Expected empty slices rather than nil")
	}
	if len(a.AgeGroups) != 3 {
		t.Errorf("Expected 3 age groups, got %v", a.AgeGroups)
	}
}

func TestComputeDistributionAndGroups(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	analyses := []entities.Analysis{
		analysisAt("1", 65, 3.0, now.AddDate(0, 0, -1)),
		analysisAt("2", 72, 3.1, now.AddDate(0, -1, 0)),
		analysisAt("3", 85, 6.1, now.AddDate(0, -1, 0)),
		analysisAt("4", 79, 6.0, now),
		analysisAt("5", 50, 10, now.AddDate(0, -3, 0)),
	}

	a := Compute(analyses, "", now)

	if a.TotalAnalyses != 5 {
		t.Errorf("Expected 5 analyses, got %d", a.TotalAnalyses)
	}
	if a.RiskDistribution != (Distribution{Low: 1, Moderate: 2, High: 2}) {
		t.Errorf("Unexpected distribution %+v", a.RiskDistribution)
	}
	if a.HighRiskPatients != 2 {
		t.Errorf("Expected 2 high-risk, got %d", a.HighRiskPatients)
	}
	// (3.0 + 3.1 + 6.1 + 6.0 + 10) / 5 = 5.64
	if a.AvgRiskScore["policy-b"] != 5.6 {
		t.Errorf("Expected policy-b average 5.6, got %v", a.AvgRiskScore)
	}
	if a.AgeGroups["60-70"] != 1 || a.AgeGroups["70-80"] != 2 || a.AgeGroups["80+"] != 1 {
		t.Errorf("Unexpected age groups %v", a.AgeGroups)
	}
	if a.ThisMonth != 2 {
		t.Errorf("Expected 2 analyses this month, got %d", a.ThisMonth)
	}

	expected := []MonthlyCount{{"2025-04", 1}, {"2025-06", 2}, {"2025-07", 2}}
	if len(a.MonthlyTrends) != len(expected) {
		t.Fatalf("Expected %d months, got %v", len(expected), a.MonthlyTrends)
	}
	for i := range expected {
		if a.MonthlyTrends[i] != expected[i] {
			t.Errorf("Month %d: expected %+v, got %+v", i, expected[i], a.MonthlyTrends[i])
		}
	}
}

func TestComputeRecentReports(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	var analyses []entities.Analysis
	for i := 0; i < 15; i++ {
		analyses = append(analyses, analysisAt(fmt.Sprint(i), 70, 2, now.Add(time.Duration(i)*time.Hour)))
	}

	a := Compute(analyses, "", now)
	if len(a.RecentReports) != RecentLimit {
		t.Fatalf("Expected %d recent reports, got %d", RecentLimit, len(a.RecentReports))
	}
	if a.RecentReports[0].AnalysisID != "14" || a.RecentReports[9].AnalysisID != "5" {
		t.Errorf("Expected newest first, got %s ... %s", a.RecentReports[0].AnalysisID, a.RecentReports[9].AnalysisID)
	}
	if analyses[0].ID != "0" {
		t.Error("Compute must not reorder its input")
	}
}

func TestComputeKeepsEachPolicyLevel(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	// Policy A total 4 is low on its own scale but moderate on the policy B scale.
	breakdown, err := risk.NewScorer().Score(risk.PolicyAName, entities.Patient{
		Name:           "Jeanne Roux",
		Age:            85,
		KidneyFunction: "mild",
		LiverFunction:  "normal",
	}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if breakdown.Total != 4 || breakdown.Level != entities.RiskLow {
		t.Fatalf("Expected policy A total 4 and level low, got %v %s", breakdown.Total, breakdown.Level)
	}

	analyses := []entities.Analysis{
		{ID: "a", Age: 85, Breakdown: breakdown, CreatedAt: now},
		analysisAt("b", 85, 6.5, now.Add(-time.Hour)),
	}

	a := Compute(analyses, "", now)
	if a.RiskDistribution != (Distribution{Low: 1, Moderate: 0, High: 1}) {
		t.Errorf("Expected {Low:1 High:1}, got %+v", a.RiskDistribution)
	}
	if a.HighRiskPatients != 1 {
		t.Errorf("Expected 1 high-risk, got %d", a.HighRiskPatients)
	}
	if len(a.AvgRiskScore) != 2 || a.AvgRiskScore[string(risk.PolicyAName)] != 4 || a.AvgRiskScore["policy-b"] != 6.5 {
		t.Errorf("Expected separate averages per policy, got %v", a.AvgRiskScore)
	}
	if a.RecentReports[0].RiskLevel != entities.RiskLow {
		t.Errorf("Expected recent report level low, got %s", a.RecentReports[0].RiskLevel)
	}
}

func TestComputeFiltersByPolicy(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	analyses := []entities.Analysis{
		{ID: "a", Age: 72, Breakdown: entities.RiskBreakdown{Policy: "policy-a", Total: 7, Level: entities.RiskHigh}, CreatedAt: now},
		analysisAt("b", 65, 2.0, now),
		analysisAt("c", 81, 4.0, now),
	}

	a := Compute(analyses, "policy-b", now)
	if a.Policy != "policy-b" || a.TotalAnalyses != 2 {
		t.Errorf("Expected 2 policy-b analyses, got %s %d", a.Policy, a.TotalAnalyses)
	}
	if a.RiskDistribution != (Distribution{Low: 1, Moderate: 1}) {
		t.Errorf("Expected {Low:1 Moderate:1}, got %+v", a.RiskDistribution)
	}
	if _, ok := a.AvgRiskScore["policy-a"]; ok {
		t.Errorf("Expected no policy-a average, got %v", a.AvgRiskScore)
	}
	if a.AvgRiskScore["policy-b"] != 3.0 {
		t.Errorf("Expected policy-b average 3.0, got %v", a.AvgRiskScore["policy-b"])
	}
	for _, r := range a.RecentReports {
		if r.Policy != "policy-b" {
			t.Errorf("Expected only policy-b reports, got %s", r.Policy)
		}
	}
}
