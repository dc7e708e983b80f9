// Package metrics declares the Prometheus series the service exports.
//
// The transport side covers request counts (http_request_total), latency
// (http_request_duration_seconds) and concurrency (http_request_in_flight).
// The domain side covers diagnosis outcomes (diagnoses_total), symptom
// matching (symptoms_matched_total) and the published model
// (model_accuracy, model_training_duration_seconds, model_disease_classes,
// model_training_samples).
//
// Everything registers against the Prometheus default registry when the
// package loads.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Requests served, by method, route pattern and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds, by method and route pattern",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Requests currently being handled",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Rate limiter buckets currently held, one per client IP seen recently",
		},
	)

	DiagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoses_total",
			Help: "Total diagnosis requests by outcome",
		},
		[]string{"outcome"},
	)

	SymptomsMatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptoms_matched_total",
			Help: "Total symptom tokens by match result",
		},
		[]string{"result"},
	)

	ModelAccuracy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Held-out accuracy of the currently published model",
		},
	)

	ModelTrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Wall-clock duration of model training runs",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ModelDiseaseClasses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_disease_classes",
			Help: "Number of disease classes in the published model",
		},
	)

	ModelTrainingSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_samples",
			Help: "Number of training samples behind the published model",
		},
	)
)

// Diagnosis outcome label values.
const (
	OutcomeSuccess         = "success"
	OutcomeNoValidSymptoms = "no_valid_symptoms"
	OutcomeModelNotTrained = "model_not_trained"
	OutcomeError           = "error"
)

// Symptom match result label values.
const (
	MatchValid   = "valid"
	MatchInvalid = "invalid"
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DiagnosesTotal)
	prometheus.MustRegister(SymptomsMatchedTotal)
	prometheus.MustRegister(ModelAccuracy)
	prometheus.MustRegister(ModelTrainingDuration)
	prometheus.MustRegister(ModelDiseaseClasses)
	prometheus.MustRegister(ModelTrainingSamples)
}
