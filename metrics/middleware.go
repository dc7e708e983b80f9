package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder captures the status code written by downstream handlers so
// it can be used as a metric label.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// observeRequest records one finished request against the Prometheus series.
// Paths are labelled with the chi route pattern rather than the raw URL to
// keep label cardinality bounded.
func observeRequest(r *http.Request, status int, elapsed time.Duration) {
	pattern := chi.RouteContext(r.Context()).RoutePattern()

	HTTPRequestTotals.WithLabelValues(r.Method, pattern, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())
}

// Metrics tracks request totals, latency and the in-flight gauge.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestInFlight.Inc()
		defer HTTPRequestInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(recorder, r)

		observeRequest(r, recorder.status, time.Since(start))
	})
}
