// Package diagnosis runs a single symptom analysis end to end: it resolves
// the reported symptoms against the vocabulary, queries the classifier and
// assembles the ranked result with its treatment suggestion.
package diagnosis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/symptomcheck/diagnosis-api/datasetparser"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
)

// TopPredictions is how many ranked diseases a diagnosis reports.
const TopPredictions = 3

// DefaultTreatmentAdvice is returned when the top disease has no entry in
// the treatment lookup table.
const DefaultTreatmentAdvice = "Consult a medical professional for proper treatment."

// ErrModelNotTrained is returned while no trained model has been published.
var ErrModelNotTrained = errors.New("model not trained")

// NoValidSymptomsError reports that none of the given symptoms resolved to a
// vocabulary entry. Invalid holds the tokens as the caller spelled them.
type NoValidSymptomsError struct {
	Invalid []string
}

func (e *NoValidSymptomsError) Error() string {
	return "no valid symptoms provided"
}

// Compile-time check to ensure Diagnoser implements the diagnoser interface
var _ interfaces.Diagnoser = (*Diagnoser)(nil)

// Diagnoser reads the current model bundle from the data store on every
// call, so a retrain published between two calls is picked up transparently.
type Diagnoser struct {
	dataStore interfaces.DataStore
}

// New creates a Diagnoser backed by the given data store.
func New(dataStore interfaces.DataStore) *Diagnoser {
	return &Diagnoser{dataStore: dataStore}
}

// Diagnose matches the symptoms, predicts disease probabilities and returns
// the ranked top predictions with the treatment for the best match. It
// returns ErrModelNotTrained before the first model is published and a
// NoValidSymptomsError when nothing the user reported is recognizable.
func (d *Diagnoser) Diagnose(symptoms []string, patient entities.Patient) (result *entities.Diagnosis, err error) {
	classifier := d.dataStore.GetClassifier()
	symptomMatcher := d.dataStore.GetMatcher()
	if classifier == nil || symptomMatcher == nil || !classifier.Trained() {
		return nil, ErrModelNotTrained
	}

	valid, invalid := symptomMatcher.Match(symptoms)
	if len(valid) == 0 {
		return nil, &NoValidSymptomsError{Invalid: invalid}
	}

	// A malformed model must never take the process down with it; a failed
	// query is reported like any other per-query error
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Recovered from prediction panic", "panic", r, "symptoms", valid)
			result = nil
			err = fmt.Errorf("prediction error: %v", r)
		}
	}()

	vector := buildInputVector(d.dataStore.GetVocabulary(), valid)
	probabilities, err := classifier.PredictProba(vector)
	if err != nil {
		return nil, fmt.Errorf("prediction error: %w", err)
	}

	predictions := rankPredictions(classifier.Classes(), probabilities, TopPredictions)
	if len(predictions) == 0 {
		return nil, errors.New("prediction error: no classes returned")
	}

	treatments := d.dataStore.GetTreatments()
	treatment, exists := treatments[datasetparser.NormalizeDiseaseName(predictions[0].Disease)]
	if !exists || treatment == "" {
		treatment = DefaultTreatmentAdvice
	}

	return &entities.Diagnosis{
		ID:              uuid.New().String(),
		Patient:         patient,
		ValidSymptoms:   valid,
		InvalidSymptoms: invalid,
		Predictions:     predictions,
		Treatment:       treatment,
		Confidence:      predictions[0].Probability,
		GeneratedAt:     time.Now(),
	}, nil
}

// buildInputVector marks every matched symptom in a zero vector laid out in
// vocabulary order.
func buildInputVector(vocabulary []string, valid []string) []float64 {
	validSet := make(map[string]bool, len(valid))
	for _, symptom := range valid {
		validSet[symptom] = true
	}
	vector := make([]float64, len(vocabulary))
	for i, symptom := range vocabulary {
		if validSet[symptom] {
			vector[i] = 1
		}
	}
	return vector
}

// rankPredictions pairs classes with their probabilities and keeps the top
// entries by descending probability. The sort is stable, so equal
// probabilities keep the classifier's class order.
func rankPredictions(classes []string, probabilities []float64, top int) []entities.Prediction {
	predictions := make([]entities.Prediction, 0, len(classes))
	for i, class := range classes {
		if i >= len(probabilities) {
			break
		}
		predictions = append(predictions, entities.Prediction{
			Disease:     class,
			Probability: probabilities[i],
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})

	if len(predictions) > top {
		predictions = predictions[:top]
	}
	return predictions
}
