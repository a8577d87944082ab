// Package risk scores polypharmacy risk for a patient under a named policy.
// Policies are pure functions of their input and safe for concurrent use.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
)

// MaxScore caps every policy total.
const MaxScore = 10.0

var (
	// ErrPolicyAmbiguity is returned when scoring is requested without a policy.
	ErrPolicyAmbiguity = errors.New("no risk policy specified")
	// ErrUnknownPolicy is returned for a policy name that is not registered.
	ErrUnknownPolicy = errors.New("unknown risk policy")
)

type PolicyName string

// InteractionSignal is one drug pair with a 0-100 interaction risk score, as
// reported by the generative service.
type InteractionSignal struct {
	Drug1     string  `json:"drug1"`
	Drug2     string  `json:"drug2"`
	RiskScore float64 `json:"risk_score"`
}

// Policy is one scoring rule set.
type Policy interface {
	Name() PolicyName
	Score(patient entities.Patient, signals []InteractionSignal) entities.RiskBreakdown
}

// Scorer dispatches to a named policy and never falls back to a default.
type Scorer struct {
	policies map[PolicyName]Policy
}

// NewScorer registers the given policies. With no arguments it registers
// PolicyA and PolicyB.
func NewScorer(policies ...Policy) *Scorer {
	if len(policies) == 0 {
		policies = []Policy{PolicyA{}, PolicyB{}}
	}
	s := &Scorer{policies: make(map[PolicyName]Policy, len(policies))}
	for _, p := range policies {
		s.policies[p.Name()] = p
	}
	return s
}

// Policies returns the registered policy names in sorted order.
func (s *Scorer) Policies() []PolicyName {
	names := make([]PolicyName, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Lookup resolves a policy name.
func (s *Scorer) Lookup(name PolicyName) (Policy, error) {
	trimmed := PolicyName(strings.ToLower(strings.TrimSpace(string(name))))
	if trimmed == "" {
		return nil, ErrPolicyAmbiguity
	}
	p, ok := s.policies[trimmed]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPolicy, name, s.Policies())
	}
	return p, nil
}

// Score runs the named policy. On error the breakdown is the zero value.
func (s *Scorer) Score(name PolicyName, patient entities.Patient, signals []InteractionSignal) (entities.RiskBreakdown, error) {
	p, err := s.Lookup(name)
	if err != nil {
		return entities.RiskBreakdown{}, err
	}
	return p.Score(patient, signals), nil
}

// finish sums the contributions, applies the cap and derives the level.
func finish(b entities.RiskBreakdown, level func(float64) entities.RiskLevel) entities.RiskBreakdown {
	total := b.AgeContribution + b.KidneyContribution + b.LiverContribution +
		b.PolypharmacyContribution + b.InteractionContribution
	if total > MaxScore {
		total = MaxScore
		b.Capped = true
	}
	b.Total = roundTenth(total)
	b.Level = level(b.Total)
	return b
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// normalizeFunction lowercases an organ function and treats a missing value
// as normal.
func normalizeFunction(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return entities.FunctionNormal
	}
	return value
}
