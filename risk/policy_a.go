package risk

import "github.com/polyrisk/polyrisk-api/entities"

const PolicyAName PolicyName = "policy-a"

// PolicyA is the integer point scale: age bands and any organ impairment.
// Medication count only sets the polypharmacy flag.
type PolicyA struct{}

func (PolicyA) Name() PolicyName { return PolicyAName }

func (PolicyA) Score(patient entities.Patient, _ []InteractionSignal) entities.RiskBreakdown {
	b := entities.RiskBreakdown{
		Policy:           string(PolicyAName),
		PolypharmacyRisk: patient.IsPolypharmacy(),
	}

	switch age := patient.Age; {
	case age >= 80:
		b.AgeContribution = 3
	case age >= 70:
		b.AgeContribution = 2
	case age >= 60:
		b.AgeContribution = 1
	}

	if normalizeFunction(patient.KidneyFunction) != entities.FunctionNormal {
		b.KidneyContribution = 1
	}
	if normalizeFunction(patient.LiverFunction) != entities.FunctionNormal {
		b.LiverContribution = 1
	}

	return finish(b, LevelA)
}

// LevelA maps an integer-scale total to its level.
func LevelA(total float64) entities.RiskLevel {
	switch {
	case total <= 4:
		return entities.RiskLow
	case total <= 6:
		return entities.RiskModerate
	default:
		return entities.RiskHigh
	}
}
