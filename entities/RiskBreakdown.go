package entities

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// RiskBreakdown is the result of scoring one patient with one policy.
// Total is the sum of the five contributions, capped at 10 when Capped is set.
type RiskBreakdown struct {
	Policy                   string    `json:"policy"`
	AgeContribution          float64   `json:"age_risk"`
	KidneyContribution       float64   `json:"kidney_risk"`
	LiverContribution        float64   `json:"liver_risk"`
	PolypharmacyContribution float64   `json:"polypharmacy_contribution"`
	InteractionContribution  float64   `json:"interaction_contribution"`
	Total                    float64   `json:"base_score"`
	Capped                   bool      `json:"capped"`
	Level                    RiskLevel `json:"risk_level"`
	PolypharmacyRisk         bool      `json:"polypharmacy_risk"`
}
