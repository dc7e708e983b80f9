package datasetparser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
)

// Compile-time check to ensure DatasetParser implements the parser interface
var _ interfaces.DatasetParser = (*DatasetParser)(nil)

// DatasetParser implements the dataset parser interface
type DatasetParser struct{}

// NewDatasetParser creates a new DatasetParser instance
func NewDatasetParser() *DatasetParser {
	return &DatasetParser{}
}

// ParseDataset implements the dataset parser interface
func (p *DatasetParser) ParseDataset(trainingPath string, treatmentsPath string) (*entities.Dataset, map[string]string, error) {
	return ParseDataset(trainingPath, treatmentsPath)
}

func validateDataset(dataset *entities.Dataset) error {
	if len(dataset.Symptoms) == 0 {
		return fmt.Errorf("no symptom columns found")
	}
	if len(dataset.Rows) == 0 {
		return fmt.Errorf("no training rows found")
	}
	for i, row := range dataset.Rows {
		if len(row.Features) != len(dataset.Symptoms) {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row.Features), len(dataset.Symptoms))
		}
	}
	return nil
}

// ParseDataset loads the training data and the treatment lookup table in
// parallel and returns both, or the first error encountered.
func ParseDataset(trainingPath string, treatmentsPath string) (*entities.Dataset, map[string]string, error) {

	// Load both files concurrently
	var wg sync.WaitGroup
	wg.Add(2)

	type trainingResult struct {
		dataset *entities.Dataset
		err     error
	}
	type treatmentsResult struct {
		treatments map[string]string
		err        error
	}

	trainingChan := make(chan trainingResult, 1)
	treatmentsChan := make(chan treatmentsResult, 1)

	go func() {
		dataset, err := makeTrainingSet(trainingPath, &wg)
		trainingChan <- trainingResult{dataset: dataset, err: err}
	}()

	go func() {
		treatments, err := makeTreatments(treatmentsPath, &wg)
		treatmentsChan <- treatmentsResult{treatments: treatments, err: err}
	}()

	wg.Wait()

	training := <-trainingChan
	if training.err != nil {
		return nil, nil, fmt.Errorf("failed to load training data: %w", training.err)
	}

	treatment := <-treatmentsChan
	if treatment.err != nil {
		return nil, nil, fmt.Errorf("failed to load treatment data: %w", treatment.err)
	}

	if err := validateDataset(training.dataset); err != nil {
		return nil, nil, fmt.Errorf("invalid training dataset: %w", err)
	}

	missing := 0
	for _, disease := range training.dataset.DiseaseNames() {
		if _, exists := treatment.treatments[NormalizeDiseaseName(disease)]; !exists {
			missing++
		}
	}
	if missing > 0 {
		logging.Warn("Diseases without treatment entries will use the generic advisory",
			"missing_count", missing)
	}

	logging.Info("Dataset parsed successfully",
		"samples", len(training.dataset.Rows),
		"diseases", len(training.dataset.DiseaseCounts),
		"symptoms", len(training.dataset.Symptoms),
		"treatments", len(treatment.treatments))

	return training.dataset, treatment.treatments, nil
}

// NormalizeDiseaseName produces the treatment map key for a disease label.
// Treatment lookups are case and surrounding-space insensitive.
func NormalizeDiseaseName(disease string) string {
	return strings.ToLower(strings.TrimSpace(disease))
}
