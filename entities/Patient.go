package entities

import "time"

// Organ function categories. Anything else is scored as normal by the
// fractional policy and as impaired by the integer policy.
const (
	FunctionNormal   = "normal"
	FunctionMild     = "mild"
	FunctionModerate = "moderate"
	FunctionSevere   = "severe"
)

// PolypharmacyThreshold is the medication count from which a patient is
// considered polypharmacy.
const PolypharmacyThreshold = 5

type Patient struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Age            int          `json:"age"`
	Gender         string       `json:"gender,omitempty"`
	KidneyFunction string       `json:"kidney_function"`
	LiverFunction  string       `json:"liver_function"`
	Medications    []Medication `json:"medications"`
	CreatedAt      time.Time    `json:"created_at"`
}

type Medication struct {
	Name      string `json:"name"`
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Category  string `json:"category,omitempty"`
}

// IsPolypharmacy reports whether the patient takes five or more medications.
func (p Patient) IsPolypharmacy() bool {
	return len(p.Medications) >= PolypharmacyThreshold
}
