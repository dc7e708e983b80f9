// Package handlers provides HTTP request handlers for the diagnosis API endpoints.
// It includes the diagnosis endpoint, vocabulary and disease lookups, treatment
// search, model info, health checks, and response formatting with proper input
// validation and error handling.
package handlers

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/symptomcheck/diagnosis-api/logging"
)

// Responses below 1KB go out uncompressed, gzip overhead is not worth it there
const compressionThreshold = 1024

// RespondWithJSON writes a JSON response, gzip-compressed when the payload is
// large enough and the client accepts it.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))

	dataSize := len(data)
	shouldCompress := dataSize >= compressionThreshold &&
		strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip")

	if shouldCompress {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(code)
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := gz.Write(data); err != nil {
			logging.Error("Failed to write compressed response", "error", err)
		}
		logging.Debug("Compressed JSON response",
			"original_size", dataSize,
			"compressed", true)
		return
	}

	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Error("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response. Error responses are small, so
// they are never compressed.
func RespondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, r, code, errorResponse)
}

// formatUptimeHuman renders a duration as "2d 4h 11m 5s", dropping leading
// units that are zero.
func formatUptimeHuman(d time.Duration) string {
	total := int(d.Seconds())
	days, rem := total/86400, total%86400
	hours, rem := rem/3600, rem%3600
	minutes, seconds := rem/60, rem%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// splitSymptoms turns a comma-separated symptom string into a clean token list.
func splitSymptoms(raw string) []string {
	parts := strings.Split(raw, ",")
	symptoms := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symptoms = append(symptoms, trimmed)
		}
	}
	return symptoms
}
