// Package data provides thread-safe storage and management for the diagnosis API.
// It includes the DataContainer struct with atomic operations for zero-downtime
// model retrains and thread-safe access methods for the classifier, the symptom
// matcher and the treatment lookup.
package data

import (
	"sync/atomic"
	"time"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
)

var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the published model bundle. Every slot is an atomic
// pointer so a retrain swaps the whole bundle in without readers ever seeing
// a half-published state.
type DataContainer struct {
	classifier      atomic.Value // interfaces.Classifier
	matcher         atomic.Value // interfaces.SymptomMatcher
	vocabulary      atomic.Value // []string
	diseases        atomic.Value // []string
	treatments      atomic.Value // map[string]string
	modelInfo       atomic.Value // entities.ModelInfo
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates an empty container. The collection slots are
// seeded with zero values so getters never trip the warning path before the
// first model publish.
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.vocabulary.Store([]string{})
	dc.diseases.Store([]string{})
	dc.treatments.Store(map[string]string{})
	dc.modelInfo.Store(entities.ModelInfo{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetClassifier returns the published classifier, or nil before the first
// training has completed
func (dc *DataContainer) GetClassifier() interfaces.Classifier {
	if classifier, ok := dc.classifier.Load().(interfaces.Classifier); ok {
		return classifier
	}
	logging.Warn("Classifier is not available yet")
	return nil
}

// GetMatcher returns the published symptom matcher, or nil before the first
// training has completed
func (dc *DataContainer) GetMatcher() interfaces.SymptomMatcher {
	if matcher, ok := dc.matcher.Load().(interfaces.SymptomMatcher); ok {
		return matcher
	}
	logging.Warn("Symptom matcher is not available yet")
	return nil
}

// GetVocabulary returns the symptom feature names in model input order
func (dc *DataContainer) GetVocabulary() []string {
	if vocabulary, ok := dc.vocabulary.Load().([]string); ok {
		return vocabulary
	}
	logging.Warn("Vocabulary list is empty or invalid")
	return []string{}
}

// GetDiseases returns the disease classes the model can predict
func (dc *DataContainer) GetDiseases() []string {
	if diseases, ok := dc.diseases.Load().([]string); ok {
		return diseases
	}
	logging.Warn("Diseases list is empty or invalid")
	return []string{}
}

// GetTreatments returns the disease name to treatment advice map
func (dc *DataContainer) GetTreatments() map[string]string {
	if treatments, ok := dc.treatments.Load().(map[string]string); ok {
		return treatments
	}
	logging.Warn("Treatments map is empty or invalid")
	return make(map[string]string)
}

// GetModelInfo returns metadata about the published model
func (dc *DataContainer) GetModelInfo() entities.ModelInfo {
	if info, ok := dc.modelInfo.Load().(entities.ModelInfo); ok {
		return info
	}
	logging.Warn("Model info is not available yet")
	return entities.ModelInfo{}
}

// GetLastUpdated returns the timestamp of the last model publish
func (dc *DataContainer) GetLastUpdated() time.Time {
	if lastUpdated, ok := dc.lastUpdated.Load().(time.Time); ok {
		return lastUpdated
	}
	logging.Warn("Last updated timestamp is not available")
	return time.Time{}
}

// IsUpdating returns true if a retrain is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime records when the process came up, for uptime reporting
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the recorded process start, or zero before
// SetServerStartTime has run
func (dc *DataContainer) GetServerStartTime() time.Time {
	if startTime, ok := dc.serverStartTime.Load().(time.Time); ok {
		return startTime
	}
	logging.Warn("Server start time is not available")
	return time.Time{}
}

// UpdateModel atomically publishes a freshly trained model bundle. Readers
// holding references to the previous bundle keep a consistent view until
// they next load.
func (dc *DataContainer) UpdateModel(classifier interfaces.Classifier, matcher interfaces.SymptomMatcher,
	vocabulary []string, diseases []string, treatments map[string]string, info entities.ModelInfo) {
	dc.classifier.Store(classifier)
	dc.matcher.Store(matcher)
	dc.vocabulary.Store(vocabulary)
	dc.diseases.Store(diseases)
	dc.treatments.Store(treatments)
	dc.modelInfo.Store(info)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a retrain operation
// Returns true if the retrain can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a retrain operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
