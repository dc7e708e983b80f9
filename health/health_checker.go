// Package health derives the service health status from the age and shape
// of the published model.
package health

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/symptomcheck/diagnosis-api/interfaces"
)

// HealthCheckerImpl derives the service health verdict from the state of the
// published model.
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	retrainAt string
}

// NewHealthChecker creates a new health checker with injected dependencies.
// retrainAt is the scheduler's HH:MM retrain time list, used to report the
// next expected retrain.
func NewHealthChecker(dataStore interfaces.DataStore, retrainAt string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		retrainAt: retrainAt,
	}
}

// classify maps the model state to a health status and HTTP code. A model
// older than two days means retrains have been failing long enough that the
// endpoint should start screaming.
func classify(modelReady bool, modelAge time.Duration, isUpdating bool) (string, int) {
	switch {
	case !modelReady:
		return "unhealthy", http.StatusServiceUnavailable
	case modelAge > 48*time.Hour:
		return "unhealthy", http.StatusServiceUnavailable
	case modelAge > 24*time.Hour:
		return "degraded", http.StatusServiceUnavailable
	case isUpdating && modelAge > 6*time.Hour:
		return "degraded", http.StatusServiceUnavailable
	default:
		return "healthy", http.StatusOK
	}
}

// HealthCheck reports the model-focused health snapshot served by /health.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	classifier := h.dataStore.GetClassifier()
	vocabulary := h.dataStore.GetVocabulary()
	diseases := h.dataStore.GetDiseases()
	info := h.dataStore.GetModelInfo()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	modelAge := time.Since(lastUpdate)
	ready := classifier != nil && classifier.Trained() &&
		len(vocabulary) > 0 && len(diseases) > 0

	status, httpStatus = classify(ready, modelAge, isUpdating)

	data = map[string]any{
		"last_trained":    lastUpdate.Format(time.RFC3339),
		"model_age_hours": math.Round(modelAge.Hours()*10) / 10,
		"accuracy":        math.Round(info.Accuracy*10000) / 10000,
		"diseases":        len(diseases),
		"symptoms":        len(vocabulary),
		"samples":         info.SampleCount,
		"is_training":     isUpdating,
	}

	return status, data, httpStatus
}

// CalculateNextRetrain returns the next scheduled retrain time
func (h *HealthCheckerImpl) CalculateNextRetrain() time.Time {
	now := time.Now()

	// Today's scheduled times, sorted
	times := make([]time.Time, 0, 2)
	for _, at := range strings.Split(h.retrainAt, ";") {
		parsed, err := time.Parse("15:04", at)
		if err != nil {
			continue
		}
		times = append(times, time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, now.Location()))
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	if len(times) == 0 {
		// Misconfigured schedule; fall back to 06:00 tomorrow
		return time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	}

	// First time today still ahead of us wins
	for _, t := range times {
		if now.Before(t) {
			return t
		}
	}

	// Otherwise the earliest time tomorrow
	return times[0].AddDate(0, 0, 1)
}
