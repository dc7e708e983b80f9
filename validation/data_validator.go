// Package validation guards both sides of the model: what users type into
// the API and what the dataset feeds the trainer.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/symptomcheck/diagnosis-api/datasetparser"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
)

// Input character sets, compiled once at package load.
var (
	// Symptom input: letters, digits, spaces, underscores and safe punctuation
	symptomRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\._']+$`)

	// Disease names additionally carry parentheses and commas in the source data
	diseaseRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\._'(),]+$`)
)

// dangerousPatterns is scanned with strings.Contains, which beats a regex
// alternation for plain substrings. Grouped by attack family.
var dangerousPatterns = []string{
	// Script and markup injection
	"<script", "</script>", "javascript:", "vbscript:",
	"onload=", "onerror=", "onclick=", "onmouseover=",
	"onfocus=", "onblur=", "onchange=", "onsubmit=",
	"eval(", "expression(", "url(", "import ", "@import",
	"binding(", "behavior(",
	// SQL fragments
	"' or ", "\" or ", "union select", "drop table",
	"delete from", "insert into", "update set",
	"--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
	// Shell metacharacters
	"; ", "| ", "& ", "`", "$(", "${",
	// Path traversal
	"../", "..\\", "%2e%2e", "file://",
	// LDAP filters
	"*)(", "*|(", "*)%",
	// NoSQL operators
	"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
}

// containsDangerous reports whether the lower-cased input carries any known
// injection substring.
func containsDangerous(input string) bool {
	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// DataValidatorImpl checks datasets before training and user strings before
// they reach the model.
type DataValidatorImpl struct{}

func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateDataset checks the loaded dataset for structural problems that
// would make training unsound. Quality issues that the service can live with
// are reported by ReportDataQuality instead.
func (v *DataValidatorImpl) ValidateDataset(dataset *entities.Dataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}

	if len(dataset.Symptoms) == 0 {
		return fmt.Errorf("no symptom columns found")
	}

	for i, symptom := range dataset.Symptoms {
		if strings.TrimSpace(symptom) == "" {
			return fmt.Errorf("empty symptom column name at index %d", i)
		}
		if len(symptom) > 100 {
			return fmt.Errorf("symptom column name too long at index %d: %d characters", i, len(symptom))
		}
	}

	if len(dataset.Rows) == 0 {
		return fmt.Errorf("no training rows found")
	}

	for i, row := range dataset.Rows {
		if len(row.Features) != len(dataset.Symptoms) {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row.Features), len(dataset.Symptoms))
		}
		if strings.TrimSpace(row.Disease) == "" {
			return fmt.Errorf("empty disease label in row %d", i)
		}
		if len(row.Disease) > 200 {
			return fmt.Errorf("disease label too long in row %d: %d characters", i, len(row.Disease))
		}
	}

	if len(dataset.DiseaseCounts) < 2 {
		return fmt.Errorf("need at least 2 disease classes, got %d", len(dataset.DiseaseCounts))
	}

	return nil
}

// ReportDataQuality generates a data quality report with all issues found.
// Everything in the report is tolerable; it exists so operators can see what
// the published model is working with.
func (v *DataValidatorImpl) ReportDataQuality(dataset *entities.Dataset, treatments map[string]string) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateSymptoms:      []string{},
		DroppedDiseases:        []string{},
		ConstantSymptomColumns: []string{},
	}

	if dataset == nil {
		return report
	}

	report.DroppedDiseases = append(report.DroppedDiseases, dataset.DroppedDiseases...)

	// Check 1: Find duplicated symptom column names. The classifier still
	// trains with them, but a duplicated column can never be set
	// independently by the matcher.
	seen := make(map[string]bool)
	duplicated := make(map[string]bool)
	for _, symptom := range dataset.Symptoms {
		if seen[symptom] && !duplicated[symptom] {
			duplicated[symptom] = true
			report.DuplicateSymptoms = append(report.DuplicateSymptoms, symptom)
		}
		seen[symptom] = true
	}

	// Check 2: Find symptom columns with the same value in every row. They
	// carry no signal and usually indicate an export problem.
	for col, symptom := range dataset.Symptoms {
		if len(dataset.Rows) == 0 {
			break
		}
		constant := true
		first := dataset.Rows[0].Features[col]
		for _, row := range dataset.Rows[1:] {
			if row.Features[col] != first {
				constant = false
				break
			}
		}
		if constant {
			report.ConstantSymptomColumns = append(report.ConstantSymptomColumns, symptom)
		}
	}

	// Check 3: Count trained diseases with no treatment entry. They fall
	// back to the generic advisory at diagnosis time.
	for disease := range dataset.DiseaseCounts {
		advice, exists := treatments[datasetparser.NormalizeDiseaseName(disease)]
		if !exists || advice == "" {
			report.DiseasesWithoutTreatment++
		}
	}

	// Check 4: Count treatment entries with empty advice text
	for _, advice := range treatments {
		if strings.TrimSpace(advice) == "" {
			report.EmptyTreatments++
		}
	}

	// Check 5: Sample count spread across diseases
	first := true
	for _, count := range dataset.DiseaseCounts {
		if first {
			report.SamplesPerDiseaseMin = count
			report.SamplesPerDiseaseMax = count
			first = false
			continue
		}
		if count < report.SamplesPerDiseaseMin {
			report.SamplesPerDiseaseMin = count
		}
		if count > report.SamplesPerDiseaseMax {
			report.SamplesPerDiseaseMax = count
		}
	}

	if len(report.DuplicateSymptoms) > 0 {
		logging.Warn("Duplicate symptom columns detected",
			"count", len(report.DuplicateSymptoms),
			"duplicates", report.DuplicateSymptoms,
		)
	}

	if len(report.ConstantSymptomColumns) > 0 {
		logging.Warn("Constant symptom columns detected",
			"count", len(report.ConstantSymptomColumns),
			"columns", report.ConstantSymptomColumns,
		)
	}

	return report
}

// ValidateInput vets one user-supplied symptom string. The injection scan
// runs before the character whitelist; both reject, but with different
// messages.
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input must not be empty")
	}
	if len(input) < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}
	if len(input) > 50 {
		return fmt.Errorf("input exceeds the 50 character limit")
	}
	if len(strings.Fields(input)) > 6 {
		return fmt.Errorf("symptom too complex: maximum 6 words allowed")
	}
	if containsDangerous(input) {
		return fmt.Errorf("input looks like an injection attempt")
	}
	if !symptomRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, underscores, hyphens, apostrophes and periods are allowed")
	}
	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input repeats one character too many times")
	}
	return nil
}

// ValidateSymptomQuery validates a symptom search string and returns it
// lower-cased and trimmed, ready for a vocabulary lookup
func (v *DataValidatorImpl) ValidateSymptomQuery(input string) (string, error) {
	if err := v.ValidateInput(input); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(input)), nil
}

// ValidateDiseaseName validates a disease path parameter and returns it
// trimmed. Disease names may carry parentheses and commas, so they get their
// own character set.
func (v *DataValidatorImpl) ValidateDiseaseName(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("input must not be empty")
	}
	if len(trimmed) > 100 {
		return "", fmt.Errorf("input exceeds the 100 character limit")
	}
	if containsDangerous(trimmed) {
		return "", fmt.Errorf("input looks like an injection attempt")
	}
	if !diseaseRegex.MatchString(trimmed) {
		return "", fmt.Errorf("input contains invalid characters")
	}
	if v.hasExcessiveRepetition(trimmed) {
		return "", fmt.Errorf("input repeats one character too many times")
	}
	return trimmed, nil
}

// hasExcessiveRepetition flags runs of more than ten identical bytes, a
// cheap guard against copy-paste floods.
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] != input[i-1] {
			run = 1
			continue
		}
		run++
		if run > 10 {
			return true
		}
	}
	return false
}
