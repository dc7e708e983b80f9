// Package logging provides the global slog service, weekly rotating log
// files and the HTTP request logging middleware for the diagnosis API.
package logging

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slowRequestThreshold marks requests worth flagging. A diagnosis normally
// finishes in a few milliseconds even with a full forest, so anything this
// slow points at lock contention or a retrain in progress.
const slowRequestThreshold = 500 * time.Millisecond

// responseWriterWrapper records the status code and body size that pass
// through an http.ResponseWriter, since the stock interface exposes neither.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}

// reset prepares a pooled wrapper for the next request.
func (w *responseWriterWrapper) reset(target http.ResponseWriter) {
	w.ResponseWriter = target
	w.statusCode = http.StatusOK
	w.bytesWritten = 0
}

// wrapperPool recycles wrappers so request logging stays allocation-free
// on the hot path.
var wrapperPool = sync.Pool{
	New: func() any {
		return &responseWriterWrapper{
			statusCode: http.StatusOK,
		}
	},
}

// skipLogging reports whether a path is probe or scrape noise. Health checks
// and metric scrapes arrive every few seconds and would drown out the
// diagnosis traffic.
func skipLogging(path string) bool {
	switch path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}
	return false
}

// requestAttrs assembles the structured attributes for one completed request.
func requestAttrs(r *http.Request, ww *responseWriterWrapper, duration time.Duration) []any {
	requestID, ok := r.Context().Value(middleware.RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
	}

	// Most requests carry no query string, skip the pair entirely then
	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}

	return append(attrs,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"status_code", ww.statusCode,
		"bytes_written", ww.bytesWritten,
		"duration_ms", duration.Milliseconds(),
	)
}

// LoggingMiddleware emits one structured record per request, flagging slow
// ones at warn level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipLogging(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ww := wrapperPool.Get().(*responseWriterWrapper)
			ww.reset(w)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			attrs := requestAttrs(r, ww, duration)

			if duration >= slowRequestThreshold {
				logger.WarnContext(r.Context(), "Slow HTTP request", attrs...)
			} else {
				logger.InfoContext(r.Context(), "HTTP request", attrs...)
			}

			wrapperPool.Put(ww)
		})
	}
}
