package risk

import (
	"errors"
	"testing"

	"github.com/polyrisk/polyrisk-api/entities"
)

func patientWith(age int, kidney, liver string, meds int) entities.Patient {
	p := entities.Patient{Name: "test", Age: age, KidneyFunction: kidney, LiverFunction: liver}
	for i := 0; i < meds; i++ {
		p.Medications = append(p.Medications, entities.Medication{Name: "drug"})
	}
	return p
}

func TestPolicyAScoresElderlyPatient(t *testing.T) {
	b := PolicyA{}.Score(patientWith(72, "moderate", "normal", 5), nil)

	if b.AgeContribution != 2 {
		t.Errorf("Expected age_risk 2, got %v", b.AgeContribution)
	}
	if b.KidneyContribution != 1 {
		t.Errorf("Expected kidney_risk 1, got %v", b.KidneyContribution)
	}
	if b.LiverContribution != 0 {
		t.Errorf("Expected liver_risk 0, got %v", b.LiverContribution)
	}
	if b.Total != 3 {
		t.Errorf("Expected base_score 3, got %v", b.Total)
	}
	if b.Level != entities.RiskLow {
		t.Errorf("Expected risk_level low, got %s", b.Level)
	}
	if !b.PolypharmacyRisk {
		t.Error("Expected polypharmacy_risk to be true")
	}
	if b.PolypharmacyContribution != 0 {
		t.Errorf("Expected medication count not to add points, got %v", b.PolypharmacyContribution)
	}
}

func TestPolicyAAgeBands(t *testing.T) {
	tests := []struct {
		age      int
		expected float64
	}{
		{45, 0}, {59, 0}, {60, 1}, {69, 1}, {70, 2}, {79, 2}, {80, 3}, {101, 3},
	}

	for _, tt := range tests {
		b := PolicyA{}.Score(patientWith(tt.age, "", "", 0), nil)
		if b.AgeContribution != tt.expected {
			t.Errorf("age %d: expected %v, got %v", tt.age, tt.expected, b.AgeContribution)
		}
	}
}

func TestPolicyATreatsAnyImpairmentAsOnePoint(t *testing.T) {
	for _, fn := range []string{"mild", "Severe", "impaired"} {
		b := PolicyA{}.Score(patientWith(30, fn, fn, 0), nil)
		if b.KidneyContribution != 1 || b.LiverContribution != 1 {
			t.Errorf("%q: expected 1/1, got %v/%v", fn, b.KidneyContribution, b.LiverContribution)
		}
	}

	b := PolicyA{}.Score(patientWith(30, " NORMAL ", "", 0), nil)
	if b.Total != 0 {
		t.Errorf("Expected normal and missing functions to score 0, got %v", b.Total)
	}
}

func TestPolicyBScoresOrganTiers(t *testing.T) {
	b := PolicyB{}.Score(patientWith(85, "severe", "severe", 0), nil)

	if b.AgeContribution != 1.5 || b.KidneyContribution != 1.5 || b.LiverContribution != 1.5 {
		t.Errorf("Expected 1.5 for age, kidney and liver, got %v/%v/%v",
			b.AgeContribution, b.KidneyContribution, b.LiverContribution)
	}
	if b.Total != 4.5 {
		t.Errorf("Expected subtotal 4.5, got %v", b.Total)
	}
	if b.Level != entities.RiskModerate {
		t.Errorf("Expected moderate, got %s", b.Level)
	}
}

func TestPolicyBInteractionAndPolypharmacyTerms(t *testing.T) {
	signals := []InteractionSignal{
		{Drug1: "warfarin", Drug2: "aspirin", RiskScore: 85},
		{Drug1: "warfarin", Drug2: "ibuprofen", RiskScore: 80},
		{Drug1: "metformin", Drug2: "lisinopril", RiskScore: 65},
		{Drug1: "metformin", Drug2: "aspirin", RiskScore: 59},
	}
	b := PolicyB{}.Score(patientWith(65, "mild", "normal", 6), signals)

	if b.InteractionContribution != 2.5 {
		t.Errorf("Expected interaction contribution 2.5, got %v", b.InteractionContribution)
	}
	if b.PolypharmacyContribution != 1 {
		t.Errorf("Expected polypharmacy contribution 1, got %v", b.PolypharmacyContribution)
	}
	// 0.5 age + 0.5 kidney + 2.5 interactions + 1 polypharmacy
	if b.Total != 4.5 {
		t.Errorf("Expected total 4.5, got %v", b.Total)
	}
}

func TestPolicyBUnknownTierScoresZero(t *testing.T) {
	b := PolicyB{}.Score(patientWith(40, "impaired", "", 0), nil)
	if b.KidneyContribution != 0 {
		t.Errorf("Expected 0 for unknown tier, got %v", b.KidneyContribution)
	}
}

func TestScoresAreCapped(t *testing.T) {
	var signals []InteractionSignal
	for i := 0; i < 10; i++ {
		signals = append(signals, InteractionSignal{Drug1: "a", Drug2: "b", RiskScore: 95})
	}
	b := PolicyB{}.Score(patientWith(90, "severe", "severe", 8), signals)

	if b.Total != MaxScore {
		t.Errorf("Expected total capped at %v, got %v", MaxScore, b.Total)
	}
	if !b.Capped {
		t.Error("Expected Capped to be set")
	}
	if b.Level != entities.RiskHigh {
		t.Errorf("Expected high, got %s", b.Level)
	}
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		level    func(float64) entities.RiskLevel
		total    float64
		expected entities.RiskLevel
	}{
		{"A 0", LevelA, 0, entities.RiskLow},
		{"A 4", LevelA, 4, entities.RiskLow},
		{"A 5", LevelA, 5, entities.RiskModerate},
		{"A 6", LevelA, 6, entities.RiskModerate},
		{"A 7", LevelA, 7, entities.RiskHigh},
		{"B 3.0", LevelB, 3.0, entities.RiskLow},
		{"B 3.04", LevelB, 3.04, entities.RiskLow},
		{"B 3.1", LevelB, 3.1, entities.RiskModerate},
		{"B 6.0", LevelB, 6.0, entities.RiskModerate},
		{"B 6.1", LevelB, 6.1, entities.RiskHigh},
		{"B 10", LevelB, 10, entities.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level(tt.total); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestScorerRequiresPolicy(t *testing.T) {
	s := NewScorer()
	p := patientWith(70, "", "", 1)

	_, err := s.Score("", p, nil)
	if !errors.Is(err, ErrPolicyAmbiguity) {
		t.Errorf("Expected ErrPolicyAmbiguity, got %v", err)
	}

	_, err = s.Score("policy-c", p, nil)
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Expected ErrUnknownPolicy, got %v", err)
	}

	b, err := s.Score(" Policy-A ", p, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b.Policy != string(PolicyAName) {
		t.Errorf("Expected policy-a, got %s", b.Policy)
	}
}

func TestScorerPolicies(t *testing.T) {
	names := NewScorer().Policies()
	if len(names) != 2 || names[0] != PolicyAName || names[1] != PolicyBName {
		t.Errorf("Expected [policy-a policy-b], got %v", names)
	}

	only := NewScorer(PolicyB{})
	if _, err := only.Lookup(PolicyAName); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Expected policy-a to be unregistered, got %v", err)
	}
}

func TestScoringIsDeterministic(t *testing.T) {
	p := patientWith(77, "moderate", "mild", 7)
	signals := []InteractionSignal{{Drug1: "a", Drug2: "b", RiskScore: 70}}

	for _, policy := range []Policy{PolicyA{}, PolicyB{}} {
		first := policy.Score(p, signals)
		for i := 0; i < 5; i++ {
			if got := policy.Score(p, signals); got != first {
				t.Fatalf("%s: expected %+v, got %+v", policy.Name(), first, got)
			}
		}
	}
}
