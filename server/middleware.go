package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"github.com/symptomcheck/diagnosis-api/config"
	"github.com/symptomcheck/diagnosis-api/logging"
	"github.com/symptomcheck/diagnosis-api/metrics"
)

// RealIPMiddleware rewrites RemoteAddr to the originating client address
// when the request came through the reverse proxy.
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			// X-Forwarded-For lists every hop; the client is the first entry
			first, _, _ := strings.Cut(forwarded, ",")
			r.RemoteAddr = strings.TrimSpace(first)
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware rejects requests that bypassed the proxy.
// Anything carrying proxy headers passes; bare requests are only accepted
// from the local machine so development setups keep working.
func BlockDirectAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied := r.Header.Get("X-Real-IP") != "" || r.Header.Get("X-Forwarded-For") != ""
		if proxied || isLocalhost(r.RemoteAddr) {
			next.ServeHTTP(w, r)
			return
		}

		logging.Warn("Rejected request that bypassed the proxy",
			"remote_addr", r.RemoteAddr,
			"user_agent", r.Header.Get("User-Agent"))
		http.Error(w, "Requests must come through the proxy", http.StatusForbidden)
	})
}

// isLocalhost reports whether the address belongs to the local machine.
// Addresses that do not parse as host:port are compared whole.
func isLocalhost(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return host == "127.0.0.1" || host == "::1" || host == "localhost"
}

// RequestSizeMiddleware rejects requests whose declared body size or header
// block exceeds the configured limits.
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if declared := r.Header.Get("Content-Length"); declared != "" {
				length, err := strconv.ParseInt(declared, 10, 64)
				if err == nil && length > cfg.MaxRequestBody {
					logging.Warn("Request body too large",
						"content_length", length,
						"max_allowed", cfg.MaxRequestBody,
						"remote_addr", r.RemoteAddr,
						"user_agent", r.UserAgent())
					respondWithJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
						"error": fmt.Sprintf("Request body too large, the limit is %d bytes", cfg.MaxRequestBody),
					})
					return
				}
			}

			if size := headerBytes(r.Header); size > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", size,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())
				respondWithJSON(w, http.StatusRequestHeaderFieldsTooLarge, map[string]string{
					"error": fmt.Sprintf("Request headers too large, the limit is %d bytes", cfg.MaxHeaderSize),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// headerBytes approximates the wire size of a header block by summing key
// and value lengths.
func headerBytes(h http.Header) int64 {
	var total int64
	for key, values := range h {
		total += int64(len(key))
		for _, value := range values {
			total += int64(len(value))
		}
	}
	return total
}

// Token bucket parameters shared by every client.
const (
	bucketRefillPerSecond = 3
	bucketCapacity        = 1000
)

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
}

// NewRateLimiter creates an empty rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{clients: make(map[string]*ratelimit.Bucket)}
}

// getBucket returns the bucket for the client, creating it on first contact.
func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, ok := rl.clients[clientIP]
	rl.mu.RUnlock()
	if ok {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, ok = rl.clients[clientIP]; ok {
		return bucket
	}
	bucket = ratelimit.NewBucketWithRate(bucketRefillPerSecond, bucketCapacity)
	rl.clients[clientIP] = bucket
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	return bucket
}

// evictIdle drops buckets that have refilled completely, which means their
// owner has been quiet long enough to forget.
func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
}

var globalRateLimiter = NewRateLimiter()

func init() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			globalRateLimiter.evictIdle()
		}
	}()
}

// tokenCosts prices each route. A diagnosis walks every tree in the forest,
// so it costs far more than a plain read; static pages and probes are free
// or nearly so.
var tokenCosts = map[string]int64{
	"/":            0,
	"/docs":        0,
	"/favicon.ico": 0,
	"/health":      5,
	"/metrics":     5,
	"/model":       5,
	"/diagnose":    100,
	"/symptoms":    20,
	"/diseases":    20,
}

const defaultTokenCost = 20

// getTokenCost returns the number of tokens a request consumes.
// Parameterized reads (suggestions, treatment lookups) price the same as
// the flat listings via the default.
func getTokenCost(r *http.Request) int64 {
	if cost, ok := tokenCosts[r.URL.Path]; ok {
		return cost
	}
	return defaultTokenCost
}

// RateLimitHandler enforces the per-client token budget.
func RateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := globalRateLimiter.getBucket(r.RemoteAddr)
		cost := getTokenCost(r)

		// Advertised limits do not depend on the outcome
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bucketCapacity))
		w.Header().Set("X-RateLimit-Rate", strconv.Itoa(bucketRefillPerSecond))

		if bucket.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// respondWithJSON writes payload with the given status. Encode failures are
// only logged; the status line is already on the wire at that point.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode JSON response", "error", err)
	}
}
