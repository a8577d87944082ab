// Package validation checks patient input and built interaction datasets.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/interfaces"
	"github.com/polyrisk/polyrisk-api/logging"
)

const (
	maxNameLength       = 200
	maxMedications      = 100
	maxAge              = 130
	maxReportedExamples = 10
)

// Compiled once at package initialization and reused for all validations
var (
	// Drug and patient names: letters in any script, digits and the punctuation
	// found in drug labels ("co-trimoxazole", "vitamin b12 (cyanocobalamin)").
	inputRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9\s\-\.\+',/()%]+$`)

	// strings.Contains is 5-10x faster than regex for these patterns
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// LDAP injection patterns
		"*)(", "*|(", "*)%",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}

	organFunctions = map[string]bool{
		"":                        true,
		entities.FunctionNormal:   true,
		entities.FunctionMild:     true,
		entities.FunctionModerate: true,
		entities.FunctionSevere:   true,
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidatePatient checks a patient before it is stored. Organ function values
// are compared case-insensitively; an empty value means not assessed.
func (v *DataValidatorImpl) ValidatePatient(p *entities.Patient) error {
	if p == nil {
		return fmt.Errorf("patient is nil")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("patient name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("patient name too long: %d characters", len(name))
	}
	if err := v.checkText(name); err != nil {
		return fmt.Errorf("invalid patient name: %w", err)
	}

	if p.Age < 0 || p.Age > maxAge {
		return fmt.Errorf("invalid age: %d", p.Age)
	}

	if !organFunctions[strings.ToLower(strings.TrimSpace(p.KidneyFunction))] {
		return fmt.Errorf("invalid kidney function: %q", p.KidneyFunction)
	}
	if !organFunctions[strings.ToLower(strings.TrimSpace(p.LiverFunction))] {
		return fmt.Errorf("invalid liver function: %q", p.LiverFunction)
	}

	if len(p.Medications) > maxMedications {
		return fmt.Errorf("too many medications: %d (maximum %d)", len(p.Medications), maxMedications)
	}
	for i, med := range p.Medications {
		medName := strings.TrimSpace(med.Name)
		if medName == "" {
			return fmt.Errorf("medication %d has no name", i+1)
		}
		if len(medName) > maxNameLength {
			return fmt.Errorf("medication %d name too long: %d characters", i+1, len(medName))
		}
		if err := v.checkText(medName); err != nil {
			return fmt.Errorf("invalid medication %q: %w", medName, err)
		}
	}

	return nil
}

// ValidateInput validates a drug lookup term
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}

	if len(input) > 100 {
		return fmt.Errorf("input too long: maximum 100 characters")
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > 8 {
		return fmt.Errorf("search query too complex: maximum 8 words allowed")
	}

	return v.checkText(input)
}

func (v *DataValidatorImpl) checkText(input string) error {
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and the punctuation - . + ' , / ( ) %% are allowed")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateDataset rejects a build that must not replace the served dataset.
// Sparse matching is reported but accepted.
func (v *DataValidatorImpl) ValidateDataset(dataset *interactions.Dataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}

	if len(dataset.Compounds) == 0 {
		return fmt.Errorf("no compounds loaded")
	}

	if len(dataset.Compounds) > 1 && len(dataset.Rows) == 0 {
		return fmt.Errorf("no interaction rows produced from %d compounds", len(dataset.Compounds))
	}

	for i, row := range dataset.Rows {
		if strings.TrimSpace(row.Drug1) == "" || strings.TrimSpace(row.Drug2) == "" {
			return fmt.Errorf("row %d has an empty drug name", i)
		}
		if row.Matched() && len(row.Tags) == 0 {
			return fmt.Errorf("row %d (%s, %s) has side effects but no source tag", i, row.Drug1, row.Drug2)
		}
	}

	if len(dataset.Rows) > 0 && dataset.Stats.Matched == 0 {
		logging.Warn("Interaction dataset has no matched pairs",
			"rows", len(dataset.Rows),
			"compounds", len(dataset.Compounds),
		)
	}

	return nil
}

// ReportDataQuality counts anomalies without rejecting the dataset. Example
// lists keep at most the first 10 occurrences.
func (v *DataValidatorImpl) ReportDataQuality(dataset *interactions.Dataset) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicatePairs:         []string{},
		DuplicateCompoundNames: []string{},
	}
	if dataset == nil {
		return report
	}

	// Check 1: rows, matches and self pairs
	seenPairs := make(map[string]int, len(dataset.Rows))
	for _, row := range dataset.Rows {
		report.TotalRows++
		if row.Matched() {
			report.MatchedRows++
		} else {
			report.UnmatchedRows++
		}

		first := strings.ToLower(strings.TrimSpace(row.Drug1))
		second := strings.ToLower(strings.TrimSpace(row.Drug2))
		if first == second {
			report.SelfPairs++
		}
		if second < first {
			first, second = second, first
		}
		seenPairs[first+"|"+second]++
		if seenPairs[first+"|"+second] == 2 && len(report.DuplicatePairs) < maxReportedExamples {
			report.DuplicatePairs = append(report.DuplicatePairs, first+"|"+second)
		}
	}
	if report.TotalRows > 0 {
		report.MatchRate = float64(report.MatchedRows) / float64(report.TotalRows)
	}

	// Check 2: compound names
	seenNames := make(map[string]int, len(dataset.Compounds))
	for _, c := range dataset.Compounds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			report.CompoundsWithoutName++
			continue
		}
		seenNames[name]++
		if seenNames[name] == 2 && len(report.DuplicateCompoundNames) < maxReportedExamples {
			report.DuplicateCompoundNames = append(report.DuplicateCompoundNames, name)
		}
	}

	if report.SelfPairs > 0 || len(report.DuplicatePairs) > 0 {
		logging.Warn("Interaction dataset pair anomalies",
			"self_pairs", report.SelfPairs,
			"duplicate_pairs", report.DuplicatePairs,
		)
	}
	if report.CompoundsWithoutName > 0 || len(report.DuplicateCompoundNames) > 0 {
		logging.Warn("Compound source name anomalies",
			"without_name", report.CompoundsWithoutName,
			"duplicate_names", report.DuplicateCompoundNames,
		)
	}

	return report
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
