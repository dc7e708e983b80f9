package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/symptomcheck/diagnosis-api/interfaces"
)

// benchHandler wires a handler around the given store and diagnoser with
// pass-through collaborators.
func benchHandler(store interfaces.DataStore, diagnoser interfaces.Diagnoser) interfaces.HTTPHandler {
	return NewHTTPHandler(store, NewMockDataValidatorBuilder().Build(),
		diagnoser, NewMockHealthChecker("healthy", http.StatusOK))
}

// numberedVocabulary generates n synthetic symptom names.
func numberedVocabulary(n int) []string {
	vocabulary := make([]string, n)
	for i := range vocabulary {
		vocabulary[i] = fmt.Sprintf("symptom_%d", i)
	}
	return vocabulary
}

func BenchmarkDiagnose(b *testing.B) {
	factory := NewTestDataFactory()
	handler := benchHandler(NewMockDataStoreBuilder().Build(),
		&MockDiagnoser{result: factory.CreateDiagnosis()})
	body := []byte(`{"symptoms": ["fever", "headache", "nausea"]}`)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("POST", "/diagnose", bytes.NewReader(body))
		handler.Diagnose(httptest.NewRecorder(), req)
	}
}

// Vocabulary listing with a realistically large vocabulary.
func BenchmarkServeSymptoms(b *testing.B) {
	store := NewMockDataStoreBuilder().WithVocabulary(numberedVocabulary(500)).Build()
	handler := benchHandler(store, &MockDiagnoser{})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		handler.ServeSymptoms(httptest.NewRecorder(), httptest.NewRequest("GET", "/symptoms", nil))
	}
}

func BenchmarkSuggestSymptoms(b *testing.B) {
	vocabulary := numberedVocabulary(500)
	store := NewMockDataStoreBuilder().
		WithVocabulary(vocabulary).
		WithMatcher(NewMockSymptomMatcher(vocabulary)).
		Build()
	handler := benchHandler(store, &MockDiagnoser{})

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("query", "symptom_1")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/symptoms/suggest/symptom_1", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		handler.SuggestSymptoms(httptest.NewRecorder(), req)
	}
}

func BenchmarkHealthCheck(b *testing.B) {
	handler := benchHandler(NewMockDataStoreBuilder().Build(), &MockDiagnoser{})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		handler.HealthCheck(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	}
}

// JSON serialization of a large payload through the gzip path.
func BenchmarkRespondWithJSONLarge(b *testing.B) {
	payload := make([]string, 1000)
	for i := range payload {
		payload[i] = fmt.Sprintf("vocabulary_entry_number_%d", i)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/symptoms", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		RespondWithJSON(httptest.NewRecorder(), req, http.StatusOK, payload)
	}
}
