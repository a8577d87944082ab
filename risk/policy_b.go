package risk

import "github.com/polyrisk/polyrisk-api/entities"

const PolicyBName PolicyName = "policy-b"

var organTiers = map[string]float64{
	entities.FunctionNormal:   0,
	entities.FunctionMild:     0.5,
	entities.FunctionModerate: 1.0,
	entities.FunctionSevere:   1.5,
}

// PolicyB is the fractional scale with interaction and polypharmacy terms.
type PolicyB struct{}

func (PolicyB) Name() PolicyName { return PolicyBName }

func (PolicyB) Score(patient entities.Patient, signals []InteractionSignal) entities.RiskBreakdown {
	b := entities.RiskBreakdown{
		Policy:           string(PolicyBName),
		PolypharmacyRisk: patient.IsPolypharmacy(),
	}

	switch age := patient.Age; {
	case age >= 80:
		b.AgeContribution = 1.5
	case age >= 70:
		b.AgeContribution = 1.0
	case age >= 60:
		b.AgeContribution = 0.5
	}

	b.KidneyContribution = organTiers[normalizeFunction(patient.KidneyFunction)]
	b.LiverContribution = organTiers[normalizeFunction(patient.LiverFunction)]

	for _, s := range signals {
		switch {
		case s.RiskScore >= 80:
			b.InteractionContribution += 1.0
		case s.RiskScore >= 60:
			b.InteractionContribution += 0.5
		}
	}

	if patient.IsPolypharmacy() {
		b.PolypharmacyContribution = 1.0
	}

	return finish(b, LevelB)
}

// LevelB maps a fractional total, rounded to one decimal, to its level.
func LevelB(total float64) entities.RiskLevel {
	switch rounded := roundTenth(total); {
	case rounded <= 3.0:
		return entities.RiskLow
	case rounded <= 6.0:
		return entities.RiskModerate
	default:
		return entities.RiskHigh
	}
}
