// Package analytics aggregates stored analyses into dashboard figures.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/risk"
)

// RecentLimit is the number of analyses listed in RecentReports.
const RecentLimit = 10

type Distribution struct {
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
}

type MonthlyCount struct {
	Month    string `json:"month"`
	Analyses int    `json:"analyses"`
}

type RecentReport struct {
	AnalysisID   string             `json:"analysis_id"`
	Patient      string             `json:"patient"`
	Age          int                `json:"age"`
	RiskScore    float64            `json:"risk_score"`
	RiskLevel    entities.RiskLevel `json:"risk_level"`
	Policy       string             `json:"policy"`
	Interactions int                `json:"interactions"`
	Medications  int                `json:"medications"`
	Date         time.Time          `json:"date"`
}

type Analytics struct {
	Policy           string             `json:"policy,omitempty"`
	TotalAnalyses    int                `json:"total_analyses"`
	HighRiskPatients int                `json:"high_risk_patients"`
	// Average total per policy; the policy scales are not comparable.
	AvgRiskScore     map[string]float64 `json:"avg_risk_score"`
	ThisMonth        int                `json:"this_month"`
	RiskDistribution Distribution       `json:"risk_distribution"`
	AgeGroups        map[string]int     `json:"age_groups"`
	MonthlyTrends    []MonthlyCount     `json:"monthly_trends"`
	RecentReports    []RecentReport     `json:"recent_reports"`
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Compute derives analytics from analyses in any order. Each analysis is
// counted under the level its own policy assigned. A non-empty policy keeps
// only the analyses scored with it.
func Compute(analyses []entities.Analysis, policy risk.PolicyName, now time.Time) Analytics {
	if policy != "" {
		filtered := make([]entities.Analysis, 0, len(analyses))
		for _, a := range analyses {
			if a.Breakdown.Policy == string(policy) {
				filtered = append(filtered, a)
			}
		}
		analyses = filtered
	}

	result := Analytics{
		Policy:        string(policy),
		TotalAnalyses: len(analyses),
		AvgRiskScore:  map[string]float64{},
		AgeGroups:     map[string]int{"60-70": 0, "70-80": 0, "80+": 0},
		MonthlyTrends: []MonthlyCount{},
		RecentReports: []RecentReport{},
	}
	if len(analyses) == 0 {
		return result
	}

	current := monthKey(now)
	months := make(map[string]int)
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, a := range analyses {
		sums[a.Breakdown.Policy] += a.Breakdown.Total
		counts[a.Breakdown.Policy]++

		switch a.Breakdown.Level {
		case entities.RiskLow:
			result.RiskDistribution.Low++
		case entities.RiskModerate:
			result.RiskDistribution.Moderate++
		case entities.RiskHigh:
			result.RiskDistribution.High++
			result.HighRiskPatients++
		}

		switch {
		case a.Age >= 80:
			result.AgeGroups["80+"]++
		case a.Age >= 70:
			result.AgeGroups["70-80"]++
		case a.Age >= 60:
			result.AgeGroups["60-70"]++
		}

		key := monthKey(a.CreatedAt)
		months[key]++
		if key == current {
			result.ThisMonth++
		}
	}

	for name, sum := range sums {
		result.AvgRiskScore[name] = math.Round(sum/float64(counts[name])*10) / 10
	}

	for month, count := range months {
		result.MonthlyTrends = append(result.MonthlyTrends, MonthlyCount{Month: month, Analyses: count})
	}
	sort.Slice(result.MonthlyTrends, func(i, j int) bool {
		return result.MonthlyTrends[i].Month < result.MonthlyTrends[j].Month
	})

	sorted := make([]entities.Analysis, len(analyses))
	copy(sorted, analyses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}
	for _, a := range sorted {
		result.RecentReports = append(result.RecentReports, RecentReport{
			AnalysisID:   a.ID,
			Patient:      a.PatientName,
			Age:          a.Age,
			RiskScore:    a.Breakdown.Total,
			RiskLevel:    a.Breakdown.Level,
			Policy:       a.Breakdown.Policy,
			Interactions: a.Report.Interactions,
			Medications:  a.Medications,
			Date:         a.CreatedAt,
		})
	}

	return result
}
