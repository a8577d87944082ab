package risk

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
)

var (
	fencedJSON   = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	leadingFloat = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Report is the parsed form of a generative-service reply. When the
// reply holds no usable JSON, Parsed is false and only RawText is set.
type Report struct {
	Parsed  bool
	RawText string
	JSON    json.RawMessage
	content reportContent
}

type reportContent struct {
	PatientName string `json:"patient_name"`
	RiskSummary struct {
		OverallRiskScore looseNumber `json:"overall_risk_score"`
		RiskLevel        string      `json:"risk_level"`
	} `json:"risk_summary"`
	DrugAnalysis []struct {
		Name             string `json:"name"`
		InteractionRisks []struct {
			Drug      string      `json:"drug"`
			RiskScore looseNumber `json:"risk_score"`
		} `json:"interaction_risks"`
	} `json:"drug_analysis"`
	DrugInteractions []struct {
		Drug1     string      `json:"drug1"`
		Drug2     string      `json:"drug2"`
		RiskScore looseNumber `json:"risk_score"`
	} `json:"drug_interactions"`
}

// looseNumber accepts 85, 85.5, "85" or "85/100". Anything else leaves it unset.
type looseNumber struct {
	Value float64
	Valid bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = looseNumber{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if m := leadingFloat.FindString(s); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				*n = looseNumber{Value: f, Valid: true}
			}
		}
	}
	return nil
}

// ParseReport extracts the JSON object from a reply that may wrap it in prose
// or a fenced block. It never fails: unusable replies come back unparsed.
func ParseReport(text string) Report {
	report := Report{RawText: strings.TrimSpace(text)}

	raw, ok := extractJSON(report.RawText)
	if !ok {
		return report
	}

	var content reportContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		// Mistyped fields are left empty; the rest of the object is kept.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return report
		}
	}

	report.Parsed = true
	report.JSON = json.RawMessage(raw)
	report.content = content
	return report
}

func extractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil && json.Valid([]byte(m[1])) {
		return m[1], true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// OverallRiskScore returns the score the service computed, if it gave one.
func (r Report) OverallRiskScore() (float64, bool) {
	s := r.content.RiskSummary.OverallRiskScore
	return s.Value, r.Parsed && s.Valid
}

// RiskLevel returns the level label the service reported.
func (r Report) RiskLevel() string {
	return r.content.RiskSummary.RiskLevel
}

// InteractionSignals lists each unordered drug pair once with its highest
// reported score. Entries without both names or with a score outside 0-100
// are ignored. An unparsed report has no signals.
func (r Report) InteractionSignals() []InteractionSignal {
	if !r.Parsed {
		return nil
	}

	best := make(map[[2]string]InteractionSignal)
	add := func(d1, d2 string, score looseNumber) {
		d1 = strings.ToLower(strings.TrimSpace(d1))
		d2 = strings.ToLower(strings.TrimSpace(d2))
		if d1 == "" || d2 == "" || d1 == d2 || !score.Valid || score.Value < 0 || score.Value > 100 {
			return
		}
		if d2 < d1 {
			d1, d2 = d2, d1
		}
		key := [2]string{d1, d2}
		if current, ok := best[key]; !ok || score.Value > current.RiskScore {
			best[key] = InteractionSignal{Drug1: d1, Drug2: d2, RiskScore: score.Value}
		}
	}

	for _, drug := range r.content.DrugAnalysis {
		for _, risk := range drug.InteractionRisks {
			add(drug.Name, risk.Drug, risk.RiskScore)
		}
	}
	for _, i := range r.content.DrugInteractions {
		add(i.Drug1, i.Drug2, i.RiskScore)
	}

	signals := make([]InteractionSignal, 0, len(best))
	for _, s := range best {
		signals = append(signals, s)
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Drug1 != signals[j].Drug1 {
			return signals[i].Drug1 < signals[j].Drug1
		}
		return signals[i].Drug2 < signals[j].Drug2
	})
	return signals
}

// ToEntity converts the report for persistence.
func (r Report) ToEntity() entities.AIReport {
	if !r.Parsed {
		return entities.AIReport{Status: entities.ReportUnparsed, RawText: r.RawText}
	}
	return entities.AIReport{
		Status:       entities.ReportParsed,
		Content:      r.JSON,
		Interactions: len(r.InteractionSignals()),
	}
}
