package diagnosis

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
)

// mockDiagnosisDataStore carries just enough state for Diagnose calls
type mockDiagnosisDataStore struct {
	classifier interfaces.Classifier
	matcher    interfaces.SymptomMatcher
	vocabulary []string
	treatments map[string]string
}

func (m *mockDiagnosisDataStore) GetClassifier() interfaces.Classifier  { return m.classifier }
func (m *mockDiagnosisDataStore) GetMatcher() interfaces.SymptomMatcher { return m.matcher }
func (m *mockDiagnosisDataStore) GetVocabulary() []string               { return m.vocabulary }
func (m *mockDiagnosisDataStore) GetDiseases() []string                 { return nil }
func (m *mockDiagnosisDataStore) GetTreatments() map[string]string      { return m.treatments }
func (m *mockDiagnosisDataStore) GetModelInfo() entities.ModelInfo      { return entities.ModelInfo{} }
func (m *mockDiagnosisDataStore) GetLastUpdated() time.Time             { return time.Time{} }
func (m *mockDiagnosisDataStore) IsUpdating() bool                      { return false }
func (m *mockDiagnosisDataStore) GetServerStartTime() time.Time         { return time.Time{} }
func (m *mockDiagnosisDataStore) BeginUpdate() bool                     { return true }
func (m *mockDiagnosisDataStore) EndUpdate()                            {}
func (m *mockDiagnosisDataStore) UpdateModel(classifier interfaces.Classifier, matcher interfaces.SymptomMatcher,
	vocabulary []string, diseases []string, treatments map[string]string, info entities.ModelInfo) {
}

// mockPredictClassifier returns canned probabilities and records its input
type mockPredictClassifier struct {
	classes       []string
	probabilities []float64
	trained       bool
	predictErr    error
	panicMessage  string
	lastInput     []float64
}

func (m *mockPredictClassifier) Train(rows []entities.TrainingRow) (float64, error) {
	return 0, nil
}

func (m *mockPredictClassifier) PredictProba(input []float64) ([]float64, error) {
	m.lastInput = input
	if m.panicMessage != "" {
		panic(m.panicMessage)
	}
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	return m.probabilities, nil
}

func (m *mockPredictClassifier) Classes() []string { return m.classes }
func (m *mockPredictClassifier) Trained() bool     { return m.trained }

// mockExactMatcher accepts only exact vocabulary spellings
type mockExactMatcher struct {
	vocabulary []string
}

func (m *mockExactMatcher) Match(symptoms []string) ([]string, []string) {
	vocabSet := make(map[string]bool, len(m.vocabulary))
	for _, entry := range m.vocabulary {
		vocabSet[entry] = true
	}
	valid := make([]string, 0, len(symptoms))
	invalid := make([]string, 0)
	for _, symptom := range symptoms {
		if vocabSet[symptom] {
			valid = append(valid, symptom)
		} else {
			invalid = append(invalid, symptom)
		}
	}
	return valid, invalid
}

func (m *mockExactMatcher) Suggest(partial string, limit int) []string { return nil }
func (m *mockExactMatcher) Vocabulary() []string                       { return m.vocabulary }

func newTestStore() (*mockDiagnosisDataStore, *mockPredictClassifier) {
	vocabulary := []string{"fever", "headache", "nausea", "fatigue"}
	classifier := &mockPredictClassifier{
		classes:       []string{"Flu", "Gastritis", "Migraine"},
		probabilities: []float64{0.6, 0.1, 0.3},
		trained:       true,
	}
	store := &mockDiagnosisDataStore{
		classifier: classifier,
		matcher:    &mockExactMatcher{vocabulary: vocabulary},
		vocabulary: vocabulary,
		treatments: map[string]string{
			"flu":      "Rest and fluids.",
			"migraine": "Rest in a dark room.",
		},
	}
	return store, classifier
}

// ============================================================================
// DIAGNOSE TESTS
// ============================================================================

func TestDiagnose(t *testing.T) {
	store, _ := newTestStore()
	diagnoser := New(store)

	result, err := diagnoser.Diagnose([]string{"fever", "headache"}, entities.Patient{Name: "Alice"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.ID == "" {
		t.Error("Expected a diagnosis ID")
	}
	if result.Patient.Name != "Alice" {
		t.Errorf("Expected patient Alice, got %q", result.Patient.Name)
	}
	if len(result.ValidSymptoms) != 2 {
		t.Errorf("Expected 2 valid symptoms, got %v", result.ValidSymptoms)
	}
	if len(result.InvalidSymptoms) != 0 {
		t.Errorf("Expected no invalid symptoms, got %v", result.InvalidSymptoms)
	}
	if time.Since(result.GeneratedAt) > time.Minute {
		t.Errorf("GeneratedAt should be recent, got %v", result.GeneratedAt)
	}

	// Predictions ranked by descending probability
	if len(result.Predictions) != 3 {
		t.Fatalf("Expected 3 predictions, got %d", len(result.Predictions))
	}
	if result.Predictions[0].Disease != "Flu" || result.Predictions[0].Probability != 0.6 {
		t.Errorf("Unexpected top prediction: %+v", result.Predictions[0])
	}
	if result.Predictions[1].Disease != "Migraine" {
		t.Errorf("Expected Migraine second, got %s", result.Predictions[1].Disease)
	}
	if result.Predictions[2].Disease != "Gastritis" {
		t.Errorf("Expected Gastritis third, got %s", result.Predictions[2].Disease)
	}

	if result.Confidence != 0.6 {
		t.Errorf("Expected confidence 0.6, got %v", result.Confidence)
	}
	if result.Treatment != "Rest and fluids." {
		t.Errorf("Unexpected treatment: %q", result.Treatment)
	}
}

func TestDiagnoseModelNotTrained(t *testing.T) {
	tests := []struct {
		name  string
		setup func(store *mockDiagnosisDataStore, classifier *mockPredictClassifier)
	}{
		{
			name: "nil classifier",
			setup: func(store *mockDiagnosisDataStore, classifier *mockPredictClassifier) {
				store.classifier = nil
			},
		},
		{
			name: "nil matcher",
			setup: func(store *mockDiagnosisDataStore, classifier *mockPredictClassifier) {
				store.matcher = nil
			},
		},
		{
			name: "untrained classifier",
			setup: func(store *mockDiagnosisDataStore, classifier *mockPredictClassifier) {
				classifier.trained = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, classifier := newTestStore()
			tt.setup(store, classifier)

			diagnoser := New(store)
			_, err := diagnoser.Diagnose([]string{"fever"}, entities.Patient{})
			if !errors.Is(err, ErrModelNotTrained) {
				t.Errorf("Expected ErrModelNotTrained, got %v", err)
			}
		})
	}
}

func TestDiagnoseNoValidSymptoms(t *testing.T) {
	store, _ := newTestStore()
	diagnoser := New(store)

	_, err := diagnoser.Diagnose([]string{"xyzzy", "quux"}, entities.Patient{})

	var noValid *NoValidSymptomsError
	if !errors.As(err, &noValid) {
		t.Fatalf("Expected NoValidSymptomsError, got %v", err)
	}

	if len(noValid.Invalid) != 2 {
		t.Fatalf("Expected 2 invalid symptoms, got %v", noValid.Invalid)
	}
	if noValid.Invalid[0] != "xyzzy" || noValid.Invalid[1] != "quux" {
		t.Errorf("Invalid symptoms should keep caller spelling: %v", noValid.Invalid)
	}
}

func TestDiagnoseBuildsCorrectInputVector(t *testing.T) {
	store, classifier := newTestStore()
	diagnoser := New(store)

	// Vocabulary order: fever, headache, nausea, fatigue
	if _, err := diagnoser.Diagnose([]string{"headache", "fatigue"}, entities.Patient{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []float64{0, 1, 0, 1}
	if len(classifier.lastInput) != len(expected) {
		t.Fatalf("Expected input of %d features, got %d", len(expected), len(classifier.lastInput))
	}
	for i, value := range expected {
		if classifier.lastInput[i] != value {
			t.Errorf("Expected input[%d]=%v, got %v", i, value, classifier.lastInput[i])
		}
	}
}

func TestDiagnoseTreatmentFallback(t *testing.T) {
	t.Run("missing treatment entry", func(t *testing.T) {
		store, _ := newTestStore()
		store.treatments = map[string]string{}

		diagnoser := New(store)
		result, err := diagnoser.Diagnose([]string{"fever"}, entities.Patient{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.Treatment != DefaultTreatmentAdvice {
			t.Errorf("Expected default advice, got %q", result.Treatment)
		}
	})

	t.Run("empty treatment text", func(t *testing.T) {
		store, _ := newTestStore()
		store.treatments = map[string]string{"flu": ""}

		diagnoser := New(store)
		result, err := diagnoser.Diagnose([]string{"fever"}, entities.Patient{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.Treatment != DefaultTreatmentAdvice {
			t.Errorf("Expected default advice for empty treatment, got %q", result.Treatment)
		}
	})
}

func TestDiagnosePredictionError(t *testing.T) {
	store, classifier := newTestStore()
	classifier.predictErr = errors.New("bad model state")

	diagnoser := New(store)
	_, err := diagnoser.Diagnose([]string{"fever"}, entities.Patient{})
	if err == nil || !strings.Contains(err.Error(), "prediction error") {
		t.Errorf("Expected wrapped prediction error, got %v", err)
	}
}

func TestDiagnoseRecoversFromPanic(t *testing.T) {
	store, classifier := newTestStore()
	classifier.panicMessage = "index out of range"

	diagnoser := New(store)
	result, err := diagnoser.Diagnose([]string{"fever"}, entities.Patient{})

	if result != nil {
		t.Error("Expected nil result after panic")
	}
	if err == nil || !strings.Contains(err.Error(), "prediction error") {
		t.Errorf("Expected prediction error after panic, got %v", err)
	}
}

// ============================================================================
// RANKING TESTS
// ============================================================================

func TestRankPredictions(t *testing.T) {
	classes := []string{"A", "B", "C", "D"}
	probabilities := []float64{0.1, 0.4, 0.3, 0.2}

	predictions := rankPredictions(classes, probabilities, 3)

	if len(predictions) != 3 {
		t.Fatalf("Expected 3 predictions, got %d", len(predictions))
	}

	expected := []string{"B", "C", "D"}
	for i, disease := range expected {
		if predictions[i].Disease != disease {
			t.Errorf("Expected rank %d to be %s, got %s", i, disease, predictions[i].Disease)
		}
	}
}

func TestRankPredictionsStableForTies(t *testing.T) {
	classes := []string{"A", "B", "C"}
	probabilities := []float64{0.4, 0.4, 0.2}

	predictions := rankPredictions(classes, probabilities, 3)

	// Equal probabilities keep class order
	if predictions[0].Disease != "A" || predictions[1].Disease != "B" {
		t.Errorf("Tie should preserve class order, got %v", predictions)
	}
}

func TestRankPredictionsFewerClassesThanTop(t *testing.T) {
	classes := []string{"A", "B"}
	probabilities := []float64{0.3, 0.7}

	predictions := rankPredictions(classes, probabilities, 3)

	if len(predictions) != 2 {
		t.Fatalf("Expected 2 predictions, got %d", len(predictions))
	}
	if predictions[0].Disease != "B" {
		t.Errorf("Expected B first, got %s", predictions[0].Disease)
	}
}

func TestRankPredictionsShortProbabilities(t *testing.T) {
	// More classes than probabilities: extra classes are ignored
	classes := []string{"A", "B", "C"}
	probabilities := []float64{0.6, 0.4}

	predictions := rankPredictions(classes, probabilities, 3)

	if len(predictions) != 2 {
		t.Fatalf("Expected 2 predictions, got %d", len(predictions))
	}
}

func TestBuildInputVector(t *testing.T) {
	vocabulary := []string{"fever", "headache", "nausea"}

	tests := []struct {
		name     string
		valid    []string
		expected []float64
	}{
		{"all matched", []string{"fever", "headache", "nausea"}, []float64{1, 1, 1}},
		{"partial", []string{"nausea"}, []float64{0, 0, 1}},
		{"none", []string{}, []float64{0, 0, 0}},
		{"unknown entries ignored", []string{"fever", "unknown"}, []float64{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector := buildInputVector(vocabulary, tt.valid)
			if len(vector) != len(tt.expected) {
				t.Fatalf("Expected vector of %d, got %d", len(tt.expected), len(vector))
			}
			for i, value := range tt.expected {
				if vector[i] != value {
					t.Errorf("Expected vector[%d]=%v, got %v", i, value, vector[i])
				}
			}
		})
	}
}

// ============================================================================
// REPORT TESTS
// ============================================================================

func TestFormatReport(t *testing.T) {
	result := &entities.Diagnosis{
		ID:              "test-id",
		Patient:         entities.Patient{Name: "Alice", Age: "34", Gender: "female"},
		ValidSymptoms:   []string{"fever", "headache"},
		InvalidSymptoms: []string{"xyzzy"},
		Predictions: []entities.Prediction{
			{Disease: "Flu", Probability: 0.6},
			{Disease: "Migraine", Probability: 0.3},
			{Disease: "Gastritis", Probability: 0.1},
		},
		Treatment:   "Rest and fluids.",
		Confidence:  0.6,
		GeneratedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	}

	report := FormatReport(result)

	expectedParts := []string{
		"MEDICAL DIAGNOSIS REPORT",
		"Patient: Alice",
		"Age:     34",
		"Gender:  female",
		"Date:    2024-06-01 12:30:00",
		"fever, headache",
		"Unrecognized symptoms (ignored):",
		"xyzzy",
		"1. Flu (60.0% confidence)",
		"2. Migraine (30.0% confidence)",
		"3. Gastritis (10.0% confidence)",
		"TREATMENT SUGGESTION:",
		"Rest and fluids.",
		"IMPORTANT MEDICAL DISCLAIMER",
	}

	for _, part := range expectedParts {
		if !strings.Contains(report, part) {
			t.Errorf("Report missing %q:\n%s", part, report)
		}
	}
}

func TestFormatReportPlaceholders(t *testing.T) {
	result := &entities.Diagnosis{
		ValidSymptoms: []string{"fever"},
		Predictions:   []entities.Prediction{{Disease: "Flu", Probability: 1}},
		Treatment:     DefaultTreatmentAdvice,
		GeneratedAt:   time.Now(),
	}

	report := FormatReport(result)

	if !strings.Contains(report, "Patient: Anonymous") {
		t.Error("Expected Anonymous placeholder for empty name")
	}
	if !strings.Contains(report, "Age:     Not specified") {
		t.Error("Expected Not specified placeholder for empty age")
	}
	if !strings.Contains(report, "Gender:  Not specified") {
		t.Error("Expected Not specified placeholder for empty gender")
	}

	// No unrecognized section when every symptom matched
	if strings.Contains(report, "Unrecognized symptoms") {
		t.Error("Unrecognized section should be absent when all symptoms matched")
	}
}
