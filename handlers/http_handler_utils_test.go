package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/interfaces"
)

// ============================================================================
// CANNED TEST DATA
// ============================================================================

// TestDataFactory hands out the small trained-model fixtures the handler
// tests share, so every test sees the same vocabulary and disease classes.
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

// CreateVocabulary returns the five-symptom vocabulary the fixtures use
func (f *TestDataFactory) CreateVocabulary() []string {
	return []string{"fever", "headache", "nausea", "fatigue", "stomach_pain"}
}

// CreateDiseases returns the three disease classes the fixtures use
func (f *TestDataFactory) CreateDiseases() []string {
	return []string{"Common Cold", "Migraine", "Gastritis"}
}

// CreateTreatments returns a treatment lookup keyed by lowercased disease name.
// Gastritis is deliberately absent so tests can exercise the missing case.
func (f *TestDataFactory) CreateTreatments() map[string]string {
	return map[string]string{
		"common cold": "Rest and drink plenty of fluids.",
		"migraine":    "Rest in a dark room and stay hydrated.",
	}
}

// CreateModelInfo returns statistics matching the fixture model
func (f *TestDataFactory) CreateModelInfo() entities.ModelInfo {
	return entities.ModelInfo{
		Accuracy:     0.92,
		DiseaseCount: 3,
		SymptomCount: 5,
		SampleCount:  120,
		TopDiseases: []entities.DiseaseFrequency{
			{Disease: "Common Cold", Count: 50},
			{Disease: "Migraine", Count: 40},
			{Disease: "Gastritis", Count: 30},
		},
		TrainingDuration: 2 * time.Second,
		TrainedAt:        time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC),
	}
}

// CreateDiagnosis returns a fully populated diagnosis result
func (f *TestDataFactory) CreateDiagnosis() *entities.Diagnosis {
	return &entities.Diagnosis{
		ID:              "test-diagnosis-id",
		ValidSymptoms:   []string{"fever", "headache"},
		InvalidSymptoms: []string{},
		Predictions: []entities.Prediction{
			{Disease: "Common Cold", Probability: 0.71},
			{Disease: "Migraine", Probability: 0.19},
			{Disease: "Gastritis", Probability: 0.10},
		},
		Treatment:   "Rest and drink plenty of fluids.",
		Confidence:  0.71,
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ============================================================================
// FIXTURE BUILDERS
// ============================================================================

// MockDataStoreBuilder assembles a MockDataStore one override at a time
type MockDataStoreBuilder struct {
	mock *MockDataStore
}

// NewMockDataStoreBuilder starts from a store that already holds a trained
// model, so most tests only override what they care about.
func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	factory := NewTestDataFactory()
	return &MockDataStoreBuilder{
		mock: &MockDataStore{
			vocabulary:      factory.CreateVocabulary(),
			diseases:        factory.CreateDiseases(),
			treatments:      factory.CreateTreatments(),
			modelInfo:       factory.CreateModelInfo(),
			matcher:         NewMockSymptomMatcher(factory.CreateVocabulary()),
			classifier:      &MockClassifier{trained: true, classes: factory.CreateDiseases()},
			lastUpdated:     time.Now(),
			serverStartTime: time.Now().Add(-1 * time.Hour),
		},
	}
}

// WithVocabulary sets the symptom vocabulary
func (b *MockDataStoreBuilder) WithVocabulary(vocabulary []string) *MockDataStoreBuilder {
	b.mock.vocabulary = vocabulary
	return b
}

// WithDiseases sets the disease class list
func (b *MockDataStoreBuilder) WithDiseases(diseases []string) *MockDataStoreBuilder {
	b.mock.diseases = diseases
	return b
}

// WithTreatments sets the treatment lookup table
func (b *MockDataStoreBuilder) WithTreatments(treatments map[string]string) *MockDataStoreBuilder {
	b.mock.treatments = treatments
	return b
}

// WithModelInfo sets the published model statistics
func (b *MockDataStoreBuilder) WithModelInfo(info entities.ModelInfo) *MockDataStoreBuilder {
	b.mock.modelInfo = info
	return b
}

// WithMatcher sets the symptom matcher (nil simulates an untrained model)
func (b *MockDataStoreBuilder) WithMatcher(matcher interfaces.SymptomMatcher) *MockDataStoreBuilder {
	b.mock.matcher = matcher
	return b
}

// WithClassifier sets the classifier (nil simulates an untrained model)
func (b *MockDataStoreBuilder) WithClassifier(classifier interfaces.Classifier) *MockDataStoreBuilder {
	b.mock.classifier = classifier
	return b
}

// WithUpdating sets the updating flag
func (b *MockDataStoreBuilder) WithUpdating(updating bool) *MockDataStoreBuilder {
	b.mock.updating = updating
	return b
}

// WithServerStartTime sets the server start time
func (b *MockDataStoreBuilder) WithServerStartTime(startTime time.Time) *MockDataStoreBuilder {
	b.mock.serverStartTime = startTime
	return b
}

// Build returns the configured mock data store
func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.mock
}

// MockDataValidatorBuilder assembles a MockDataValidator with chosen failures
type MockDataValidatorBuilder struct {
	mock *MockDataValidator
}

// NewMockDataValidatorBuilder starts from a validator that accepts everything
func NewMockDataValidatorBuilder() *MockDataValidatorBuilder {
	return &MockDataValidatorBuilder{mock: &MockDataValidator{}}
}

// WithInputError makes ValidateInput fail with the given error
func (b *MockDataValidatorBuilder) WithInputError(err error) *MockDataValidatorBuilder {
	b.mock.inputError = err
	return b
}

// WithQueryError makes ValidateSymptomQuery fail with the given error
func (b *MockDataValidatorBuilder) WithQueryError(err error) *MockDataValidatorBuilder {
	b.mock.queryError = err
	return b
}

// WithDiseaseError makes ValidateDiseaseName fail with the given error
func (b *MockDataValidatorBuilder) WithDiseaseError(err error) *MockDataValidatorBuilder {
	b.mock.diseaseError = err
	return b
}

// Build returns the configured mock validator
func (b *MockDataValidatorBuilder) Build() *MockDataValidator {
	return b.mock
}

// ============================================================================
// REQUEST AND ASSERTION HELPERS
// ============================================================================

// HTTPTestHelper drives handlers through httptest and asserts on responses
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest runs one request through a handler and returns the recorder
func (h *HTTPTestHelper) ExecuteRequest(method, path string, body interface{}, urlParams map[string]string, handlerFunc http.HandlerFunc) *httptest.ResponseRecorder {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// chi.URLParam reads from the route context, which httptest never populates
	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range urlParams {
			rctx.URLParams.Add(key, value)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)
	return recorder
}

// ExecuteRawRequest executes a request with a raw body, for malformed JSON cases
func (h *HTTPTestHelper) ExecuteRawRequest(method, path, rawBody string, handlerFunc http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)
	return recorder
}

// AssertJSONResponse checks the status code and returns the decoded JSON body
func (h *HTTPTestHelper) AssertJSONResponse(recorder *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	if recorder.Code != expectedStatus {
		h.t.Errorf("Expected status code %d, got %d", expectedStatus, recorder.Code)
	}

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json; charset=utf-8" {
		h.t.Errorf("Expected Content-Type application/json; charset=utf-8, got %s", contentType)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		h.t.Fatalf("Failed to unmarshal response body: %v", err)
	}
	return response
}

// AssertErrorResponse checks an error response's status, message and code fields
func (h *HTTPTestHelper) AssertErrorResponse(recorder *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	response := h.AssertJSONResponse(recorder, expectedStatus)

	if message, ok := response["message"].(string); !ok || message != expectedMessage {
		h.t.Errorf("Expected error message %q, got %q", expectedMessage, response["message"])
	}

	if code, ok := response["code"].(float64); !ok || int(code) != expectedStatus {
		h.t.Errorf("Expected error code %d, got %v", expectedStatus, response["code"])
	}
}

// AssertHealthResponse checks the structure of a health check response
func (h *HTTPTestHelper) AssertHealthResponse(recorder *httptest.ResponseRecorder, expectedStatus int, expectedHealth string) map[string]interface{} {
	response := h.AssertJSONResponse(recorder, expectedStatus)

	if status, ok := response["status"].(string); !ok || status != expectedHealth {
		h.t.Errorf("Expected health status %q, got %q", expectedHealth, response["status"])
	}

	if _, ok := response["data"].(map[string]interface{}); !ok {
		h.t.Error("Expected data section in health response")
	}

	if _, ok := response["system"].(map[string]interface{}); !ok {
		h.t.Error("Expected system section in health response")
	}

	return response
}

// ============================================================================
// MOCKS
// ============================================================================

// MockDataStore serves a canned published model and records which getters
// the handler under test touched
type MockDataStore struct {
	vocabulary      []string
	diseases        []string
	treatments      map[string]string
	modelInfo       entities.ModelInfo
	matcher         interfaces.SymptomMatcher
	classifier      interfaces.Classifier
	lastUpdated     time.Time
	updating        bool
	serverStartTime time.Time

	// set as the handler reaches for each getter
	getVocabularyCalled bool
	getDiseasesCalled   bool
	getTreatmentsCalled bool
	getModelInfoCalled  bool
	getMatcherCalled    bool
	updateModelCalled   bool
}

func (m *MockDataStore) GetClassifier() interfaces.Classifier {
	return m.classifier
}

func (m *MockDataStore) GetMatcher() interfaces.SymptomMatcher {
	m.getMatcherCalled = true
	return m.matcher
}

func (m *MockDataStore) GetVocabulary() []string {
	m.getVocabularyCalled = true
	return m.vocabulary
}

func (m *MockDataStore) GetDiseases() []string {
	m.getDiseasesCalled = true
	return m.diseases
}

func (m *MockDataStore) GetTreatments() map[string]string {
	m.getTreatmentsCalled = true
	return m.treatments
}

func (m *MockDataStore) GetModelInfo() entities.ModelInfo {
	m.getModelInfoCalled = true
	return m.modelInfo
}

func (m *MockDataStore) GetLastUpdated() time.Time {
	return m.lastUpdated
}

func (m *MockDataStore) IsUpdating() bool {
	return m.updating
}

func (m *MockDataStore) GetServerStartTime() time.Time {
	return m.serverStartTime
}

func (m *MockDataStore) UpdateModel(classifier interfaces.Classifier, matcher interfaces.SymptomMatcher,
	vocabulary []string, diseases []string, treatments map[string]string, info entities.ModelInfo) {
	m.updateModelCalled = true
	m.classifier = classifier
	m.matcher = matcher
	m.vocabulary = vocabulary
	m.diseases = diseases
	m.treatments = treatments
	m.modelInfo = info
	m.lastUpdated = time.Now()
}

func (m *MockDataStore) BeginUpdate() bool {
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

func (m *MockDataStore) EndUpdate() {
	m.updating = false
}

// MockDataValidator fails whichever validations the builder armed it with
type MockDataValidator struct {
	inputError   error
	queryError   error
	diseaseError error

	validateInputCalled   bool
	validateQueryCalled   bool
	validateDiseaseCalled bool
}

func (m *MockDataValidator) ValidateDataset(dataset *entities.Dataset) error {
	return nil
}

func (m *MockDataValidator) ReportDataQuality(dataset *entities.Dataset, treatments map[string]string) *interfaces.DataQualityReport {
	return &interfaces.DataQualityReport{}
}

func (m *MockDataValidator) ValidateInput(input string) error {
	m.validateInputCalled = true
	return m.inputError
}

func (m *MockDataValidator) ValidateSymptomQuery(input string) (string, error) {
	m.validateQueryCalled = true
	if m.queryError != nil {
		return "", m.queryError
	}
	return strings.ToLower(strings.TrimSpace(input)), nil
}

func (m *MockDataValidator) ValidateDiseaseName(input string) (string, error) {
	m.validateDiseaseCalled = true
	if m.diseaseError != nil {
		return "", m.diseaseError
	}
	return strings.TrimSpace(input), nil
}

// MockSymptomMatcher implements interfaces.SymptomMatcher for testing.
// It only accepts exact vocabulary hits, so tests control matching precisely.
type MockSymptomMatcher struct {
	vocabulary  []string
	suggestions []string

	matchCalled   bool
	suggestCalled bool
}

func NewMockSymptomMatcher(vocabulary []string) *MockSymptomMatcher {
	return &MockSymptomMatcher{vocabulary: vocabulary}
}

func (m *MockSymptomMatcher) Match(symptoms []string) ([]string, []string) {
	m.matchCalled = true
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

func (m *MockSymptomMatcher) Suggest(partial string, limit int) []string {
	m.suggestCalled = true
	if m.suggestions != nil {
		return m.suggestions
	}

	matches := make([]string, 0, limit)
	for _, entry := range m.vocabulary {
		if strings.Contains(entry, partial) {
			matches = append(matches, entry)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}

func (m *MockSymptomMatcher) Vocabulary() []string {
	return m.vocabulary
}

// MockClassifier returns either fixed probabilities or a uniform spread
type MockClassifier struct {
	trained       bool
	classes       []string
	probabilities []float64
	predictError  error
}

func (m *MockClassifier) Train(rows []entities.TrainingRow) (float64, error) {
	m.trained = true
	return 0.9, nil
}

func (m *MockClassifier) PredictProba(input []float64) ([]float64, error) {
	if m.predictError != nil {
		return nil, m.predictError
	}
	if m.probabilities != nil {
		return m.probabilities, nil
	}

	// Uniform distribution over the configured classes
	probabilities := make([]float64, len(m.classes))
	for i := range probabilities {
		probabilities[i] = 1.0 / float64(len(m.classes))
	}
	return probabilities, nil
}

func (m *MockClassifier) Classes() []string {
	return m.classes
}

func (m *MockClassifier) Trained() bool {
	return m.trained
}

// MockDiagnoser returns a canned result and captures what it was asked
type MockDiagnoser struct {
	result *entities.Diagnosis
	err    error

	diagnoseCalled bool
	lastSymptoms   []string
	lastPatient    entities.Patient
}

func (m *MockDiagnoser) Diagnose(symptoms []string, patient entities.Patient) (*entities.Diagnosis, error) {
	m.diagnoseCalled = true
	m.lastSymptoms = symptoms
	m.lastPatient = patient
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// MockHealthChecker reports whatever verdict it was constructed with
type MockHealthChecker struct {
	status      string
	details     map[string]any
	httpStatus  int
	nextRetrain time.Time
}

func NewMockHealthChecker(status string, httpStatus int) *MockHealthChecker {
	return &MockHealthChecker{
		status:      status,
		details:     map[string]any{"diseases": 3, "symptoms": 5},
		httpStatus:  httpStatus,
		nextRetrain: time.Now().Add(6 * time.Hour),
	}
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextRetrain() time.Time {
	return m.nextRetrain
}
