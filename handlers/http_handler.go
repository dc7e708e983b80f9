package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/symptomcheck/diagnosis-api/datasetparser"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/diagnosis"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
	"github.com/symptomcheck/diagnosis-api/matcher"
	"github.com/symptomcheck/diagnosis-api/metrics"
)

// Upper bound on symptoms accepted in a single request
const maxSymptomsPerRequest = 20

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl serves every API endpoint, with its collaborators injected
// behind their interfaces.
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	diagnoser     interfaces.Diagnoser
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler assembles the endpoint handler from its collaborators.
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator,
	diagnoser interfaces.Diagnoser, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		diagnoser:     diagnoser,
		healthChecker: healthChecker,
	}
}

// ServeHTTP satisfies http.Handler. Routing happens in the chi router, so a
// request landing here means a route registration bug.
func (h *HTTPHandlerImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not implemented", http.StatusNotImplemented)
}

// symptomList accepts either a JSON array of strings or a single
// comma-separated string, so both the chat page and API clients can post
// symptoms the way they already have them.
type symptomList []string

func (s *symptomList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		cleaned := make([]string, 0, len(list))
		for _, item := range list {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		*s = cleaned
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("symptoms must be an array of strings or a comma-separated string")
	}
	*s = splitSymptoms(raw)
	return nil
}

// DiagnoseRequest is the POST /diagnose request body
type DiagnoseRequest struct {
	Symptoms symptomList      `json:"symptoms"`
	Patient  entities.Patient `json:"patient"`
}

// HealthResponse is a struct rather than a map so the JSON fields always
// serialize in this order.
type HealthResponse struct {
	Status        string                 `json:"status"`
	Uptime        string                 `json:"uptime"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	NextRetrain   string                 `json:"next_retrain"`
	Data          map[string]interface{} `json:"data"`
	System        map[string]interface{} `json:"system"`
}

// Diagnose analyzes the posted symptoms and returns the ranked predictions
func (h *HTTPHandlerImpl) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req DiagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Symptoms) == 0 {
		RespondWithError(w, r, http.StatusBadRequest, "No symptoms provided")
		return
	}

	if len(req.Symptoms) > maxSymptomsPerRequest {
		RespondWithError(w, r, http.StatusBadRequest, "Too many symptoms in one request")
		return
	}

	// Validate each symptom before touching the model
	for _, symptom := range req.Symptoms {
		if err := h.validator.ValidateInput(symptom); err != nil {
			logging.Warn("Unusual user input", "symptom", symptom, "error", err)
			RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.diagnoser.Diagnose(req.Symptoms, req.Patient)
	if err != nil {
		var noValid *diagnosis.NoValidSymptomsError
		switch {
		case errors.Is(err, diagnosis.ErrModelNotTrained):
			metrics.DiagnosesTotal.WithLabelValues(metrics.OutcomeModelNotTrained).Inc()
			RespondWithError(w, r, http.StatusServiceUnavailable, "Model is not trained yet")
		case errors.As(err, &noValid):
			metrics.DiagnosesTotal.WithLabelValues(metrics.OutcomeNoValidSymptoms).Inc()
			metrics.SymptomsMatchedTotal.WithLabelValues(metrics.MatchInvalid).Add(float64(len(noValid.Invalid)))
			RespondWithJSON(w, r, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":           http.StatusText(http.StatusUnprocessableEntity),
				"message":         "None of the provided symptoms are recognized",
				"code":            http.StatusUnprocessableEntity,
				"invalidSymptoms": noValid.Invalid,
			})
		default:
			logging.Error("Diagnosis failed", "error", err)
			metrics.DiagnosesTotal.WithLabelValues(metrics.OutcomeError).Inc()
			RespondWithError(w, r, http.StatusInternalServerError, "Diagnosis failed")
		}
		return
	}

	metrics.DiagnosesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.SymptomsMatchedTotal.WithLabelValues(metrics.MatchValid).Add(float64(len(result.ValidSymptoms)))
	metrics.SymptomsMatchedTotal.WithLabelValues(metrics.MatchInvalid).Add(float64(len(result.InvalidSymptoms)))

	RespondWithJSON(w, r, http.StatusOK, result)
}

// ServeSymptoms returns the symptom vocabulary the model was trained on
func (h *HTTPHandlerImpl) ServeSymptoms(w http.ResponseWriter, r *http.Request) {
	vocabulary := h.dataStore.GetVocabulary()
	RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"symptoms": vocabulary,
		"count":    len(vocabulary),
	})
}

// SuggestSymptoms returns vocabulary entries matching a partial query
func (h *HTTPHandlerImpl) SuggestSymptoms(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if query == "" {
		RespondWithError(w, r, http.StatusBadRequest, "Missing symptom query")
		return
	}

	normalized, err := h.validator.ValidateSymptomQuery(query)
	if err != nil {
		logging.Warn("Unusual user input", "query", query, "error", err)
		RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	symptomMatcher := h.dataStore.GetMatcher()
	if symptomMatcher == nil {
		RespondWithError(w, r, http.StatusServiceUnavailable, "Model is not trained yet")
		return
	}

	suggestions := symptomMatcher.Suggest(normalized, matcher.DefaultSuggestionLimit)
	RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"query":       normalized,
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// ServeDiseases returns the disease classes the model can predict
func (h *HTTPHandlerImpl) ServeDiseases(w http.ResponseWriter, r *http.Request) {
	diseases := h.dataStore.GetDiseases()
	RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"diseases": diseases,
		"count":    len(diseases),
	})
}

// FindTreatment looks up the treatment text for a disease
func (h *HTTPHandlerImpl) FindTreatment(w http.ResponseWriter, r *http.Request) {
	disease := chi.URLParam(r, "disease")
	if disease == "" {
		RespondWithError(w, r, http.StatusBadRequest, "Missing disease name")
		return
	}

	name, err := h.validator.ValidateDiseaseName(disease)
	if err != nil {
		logging.Warn("Unusual user input", "disease", disease, "error", err)
		RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	treatments := h.dataStore.GetTreatments()
	treatment, found := treatments[datasetparser.NormalizeDiseaseName(name)]
	if treatment == "" {
		treatment = diagnosis.DefaultTreatmentAdvice
		found = false
	}

	RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"disease":   name,
		"treatment": treatment,
		"found":     found,
	})
}

// ServeModelInfo returns training statistics for the current model
func (h *HTTPHandlerImpl) ServeModelInfo(w http.ResponseWriter, r *http.Request) {
	info := h.dataStore.GetModelInfo()
	if info.TrainedAt.IsZero() {
		RespondWithError(w, r, http.StatusServiceUnavailable, "Model is not trained yet")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, info)
}

// HealthCheck reports the model health verdict together with process-level
// runtime statistics.
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, details, httpStatus := h.healthChecker.HealthCheck()
	uptime := time.Since(h.dataStore.GetServerStartTime())

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		NextRetrain:   h.healthChecker.CalculateNextRetrain().Format(time.RFC3339),
		Data:          details,
		System: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, r, httpStatus, response)
}
