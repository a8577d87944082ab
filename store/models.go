package store

import (
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/uptrace/bun"
)

type patientModel struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID              string                `bun:"id,pk"`
	Name            string                `bun:"name,notnull"`
	Age             int                   `bun:"age,notnull"`
	Gender          string                `bun:"gender"`
	KidneyFunction  string                `bun:"kidney_function"`
	LiverFunction   string                `bun:"liver_function"`
	Medications     []entities.Medication `bun:"medications,type:json"`
	MedicationCount int                   `bun:"medication_count,notnull"`
	CreatedAt       time.Time             `bun:"created_at,notnull"`
}

type analysisModel struct {
	bun.BaseModel `bun:"table:analyses,alias:a"`

	ID          string                 `bun:"id,pk"`
	PatientID   string                 `bun:"patient_id,notnull"`
	PatientName string                 `bun:"patient_name"`
	Age         int                    `bun:"age"`
	Medications int                    `bun:"medications"`
	Policy      string                 `bun:"policy,notnull"`
	BaseScore   float64                `bun:"base_score"`
	RiskLevel   string                 `bun:"risk_level"`
	Breakdown   entities.RiskBreakdown `bun:"breakdown,type:json"`
	Report      entities.AIReport      `bun:"report,type:json"`
	CreatedAt   time.Time              `bun:"created_at,notnull"`
}

func newPatientModel(p entities.Patient) *patientModel {
	return &patientModel{
		ID:              p.ID,
		Name:            p.Name,
		Age:             p.Age,
		Gender:          p.Gender,
		KidneyFunction:  p.KidneyFunction,
		LiverFunction:   p.LiverFunction,
		Medications:     p.Medications,
		MedicationCount: len(p.Medications),
		CreatedAt:       p.CreatedAt.UTC(),
	}
}

func (m *patientModel) entity() entities.Patient {
	meds := m.Medications
	if meds == nil {
		meds = []entities.Medication{}
	}
	return entities.Patient{
		ID:             m.ID,
		Name:           m.Name,
		Age:            m.Age,
		Gender:         m.Gender,
		KidneyFunction: m.KidneyFunction,
		LiverFunction:  m.LiverFunction,
		Medications:    meds,
		CreatedAt:      m.CreatedAt,
	}
}

func newAnalysisModel(a entities.Analysis) *analysisModel {
	return &analysisModel{
		ID:          a.ID,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Age:         a.Age,
		Medications: a.Medications,
		Policy:      a.Breakdown.Policy,
		BaseScore:   a.Breakdown.Total,
		RiskLevel:   string(a.Breakdown.Level),
		Breakdown:   a.Breakdown,
		Report:      a.Report,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

func (m *analysisModel) entity() entities.Analysis {
	return entities.Analysis{
		ID:          m.ID,
		PatientID:   m.PatientID,
		PatientName: m.PatientName,
		Age:         m.Age,
		Medications: m.Medications,
		Breakdown:   m.Breakdown,
		Report:      m.Report,
		CreatedAt:   m.CreatedAt,
	}
}
