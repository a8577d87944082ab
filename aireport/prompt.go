package aireport

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/polyrisk/polyrisk-api/entities"
)

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"points": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`You are a clinical pharmacology assistant with access to up-to-date medical literature.
Analyze this patient's data and medications for drug-drug interactions, organ toxicity and risk.

Patient details:
- Name: {{.Patient.Name}}
- Age: {{.Patient.Age}}
- Gender: {{if .Patient.Gender}}{{.Patient.Gender}}{{else}}unspecified{{end}}
- Kidney function: {{.Kidney}}
- Liver function: {{.Liver}}
- Medications:
{{.Medications}}

Base risk score ({{.Breakdown.Policy}}):
- Age {{.Patient.Age}}: {{points .Breakdown.AgeContribution}} points
- Kidney function ({{.Kidney}}): +{{points .Breakdown.KidneyContribution}} points
- Liver function ({{.Liver}}): +{{points .Breakdown.LiverContribution}} points
- Base score: {{points .Base}}/10

For each medication, evaluate:
1. Drug-drug interaction risks with the other medications, scored 0-100
2. Side effects and their severity
3. Organs affected
4. Its contribution to the overall risk

Additional scoring rules:
- Each drug-drug interaction with risk_score >= 60: +0.5
- Each drug-drug interaction with risk_score >= 80: +1.0 instead
- Polypharmacy (5 or more medications): +1.0

Answer with a single JSON object of this shape:
{
  "patient_name": "{{.Patient.Name}}",
  "age": {{.Patient.Age}},
  "base_risk_score": {{points .Base}},
  "risk_summary": {
    "overall_risk_score": "<0-10>",
    "risk_level": "Low | Moderate | High",
    "notes": "<explanation of the risk factors>"
  },
  "drug_analysis": [
    {
      "name": "<drug>",
      "category": "<drug class>",
      "interaction_risks": [
        {
          "drug": "<other drug>",
          "interaction": "<description>",
          "risk_score": <0-100>,
          "clinical_impact": "<severity and implications>"
        }
      ],
      "side_effects": [
        {
          "effect": "<name>",
          "severity": "<Mild | Moderate | Severe>",
          "frequency": "<Common | Uncommon | Rare>"
        }
      ],
      "organs_affected": [
        {
          "organ": "<organ>",
          "effect": "<effect>",
          "severity": "<Mild | Moderate | Severe>"
        }
      ]
    }
  ],
  "drug_alternatives": [
    {
      "original_drug": "<drug>",
      "alternatives": [
        {
          "alternative_name": "<drug>",
          "dosing_recommendation": "<dose>",
          "monitoring_parameters": ["<lab>"]
        }
      ]
    }
  ],
  "clinical_recommendations": ["<recommendation>"]
}

Risk levels: 0-3.0 low, 3.1-6.0 moderate, 6.1-10.0 high.
`))

type promptData struct {
	Patient     entities.Patient
	Breakdown   entities.RiskBreakdown
	Kidney      string
	Liver       string
	Medications string
	Base        float64
}

func orNormal(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return entities.FunctionNormal
	}
	return v
}

// BuildPrompt renders the report prompt for a patient and its base score.
// Base counts only the age and organ terms; the service adds the rest.
func BuildPrompt(patient entities.Patient, breakdown entities.RiskBreakdown) (string, error) {
	meds, err := json.MarshalIndent(patient.Medications, "  ", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode medications: %w", err)
	}

	data := promptData{
		Patient:     patient,
		Breakdown:   breakdown,
		Kidney:      orNormal(patient.KidneyFunction),
		Liver:       orNormal(patient.LiverFunction),
		Medications: "  " + string(meds),
		Base:        breakdown.AgeContribution + breakdown.KidneyContribution + breakdown.LiverContribution,
	}

	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}
