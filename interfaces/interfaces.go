// Package interfaces defines the contracts between the diagnosis API's
// components, so each one can be exercised against mocks of the others.
package interfaces

import (
	"net/http"
	"time"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
)

// DataQualityReport summarizes the non-fatal issues found in a loaded
// dataset.
type DataQualityReport struct {
	DuplicateSymptoms        []string
	DroppedDiseases          []string
	DiseasesWithoutTreatment int      // Trained diseases with no treatment entry
	ConstantSymptomColumns   []string // Symptom columns with the same value in every row
	EmptyTreatments          int      // Treatment entries with an empty advice text
	SamplesPerDiseaseMin     int
	SamplesPerDiseaseMax     int
}

// DataStore defines the contract for model storage operations.
// It provides thread-safe access to the trained classifier, the symptom
// matcher and the treatment lookup with atomic operations for zero-downtime
// retrains.
type DataStore interface {
	// Model retrieval methods
	GetClassifier() Classifier
	GetMatcher() SymptomMatcher
	GetVocabulary() []string
	GetDiseases() []string
	GetTreatments() map[string]string
	GetModelInfo() entities.ModelInfo
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Model update methods
	UpdateModel(classifier Classifier, matcher SymptomMatcher, vocabulary []string,
		diseases []string, treatments map[string]string, info entities.ModelInfo)
	BeginUpdate() bool
	EndUpdate()
}

// DatasetParser defines the contract for loading the training data and the
// treatment lookup table from their CSV sources.
type DatasetParser interface {
	// ParseDataset loads and validates both data files
	ParseDataset(trainingPath string, treatmentsPath string) (*entities.Dataset, map[string]string, error)
}

// Classifier defines the contract for the disease prediction model.
type Classifier interface {
	// Train fits the model and returns the held-out accuracy
	Train(rows []entities.TrainingRow) (float64, error)

	// PredictProba returns one probability per class, aligned with Classes
	PredictProba(input []float64) ([]float64, error)

	// Classes returns the class labels in probability order
	Classes() []string

	// Trained reports whether the model is ready for predictions
	Trained() bool
}

// SymptomMatcher defines the contract for resolving free-text symptoms onto
// the model vocabulary.
type SymptomMatcher interface {
	// Match partitions tokens into vocabulary members and unmatchable input
	Match(symptoms []string) (valid []string, invalid []string)

	// Suggest returns vocabulary entries containing the partial input
	Suggest(partial string, limit int) []string

	// Vocabulary returns the feature names in model input order
	Vocabulary() []string
}

// Diagnoser defines the contract for running one symptom analysis end to end.
type Diagnoser interface {
	// Diagnose matches the symptoms, runs the classifier and returns the
	// ranked result
	Diagnose(symptoms []string, patient entities.Patient) (*entities.Diagnosis, error)
}

// Scheduler defines the contract for the background jobs: the daily retrain
// and the periodic health probe.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for the API endpoint set the router
// dispatches to.
type HTTPHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	Diagnose(w http.ResponseWriter, r *http.Request)
	ServeSymptoms(w http.ResponseWriter, r *http.Request)
	SuggestSymptoms(w http.ResponseWriter, r *http.Request)
	ServeDiseases(w http.ResponseWriter, r *http.Request)
	FindTreatment(w http.ResponseWriter, r *http.Request)
	ServeModelInfo(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for deriving the service health
// verdict from the model state.
type HealthChecker interface {
	// HealthCheck returns the current health status, its detail payload and
	// the HTTP status code it maps to
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextRetrain returns the next scheduled retrain time
	CalculateNextRetrain() time.Time
}

// DataValidator defines the contract for checking both the training data
// and the strings users send in.
type DataValidator interface {
	// ValidateDataset checks the loaded dataset for structural problems
	ValidateDataset(dataset *entities.Dataset) error

	// ReportDataQuality collects the non-fatal issues in a dataset
	ReportDataQuality(dataset *entities.Dataset, treatments map[string]string) *DataQualityReport

	// ValidateInput rejects symptom strings that are malformed or hostile
	ValidateInput(input string) error

	// ValidateSymptomQuery validates and normalizes a symptom search string
	ValidateSymptomQuery(input string) (string, error)

	// ValidateDiseaseName validates and normalizes a disease path parameter
	ValidateDiseaseName(input string) (string, error)
}
