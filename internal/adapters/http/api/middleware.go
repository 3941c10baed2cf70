package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dietlens/pkg/logger"
	"github.com/okian/dietlens/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest    = 400
	statusNotFound      = 404
	statusInternalError = 500
)

// Header names used by the middleware.
const (
	HeaderRequestID = "X-Request-ID"

	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"

	analysisMethods = "GET, POST, OPTIONS"
	analysisHeaders = "Content-Type"
)

// maxRequestIDLen bounds echoed request ids.
const maxRequestIDLen = 128

// ChainOption configures the middleware applied by Chain.
type ChainOption func(*chainConfig)

type chainConfig struct {
	preflight bool
}

// WithAnalysisCORS adds the analysis route's CORS headers and answers
// OPTIONS preflight requests with 204.
func WithAnalysisCORS() ChainOption {
	return func(c *chainConfig) {
		c.preflight = true
	}
}

// Chain wraps next with request id, CORS and metrics middleware.
func Chain(next http.HandlerFunc, endpoint string, opts ...ChainOption) http.HandlerFunc {
	var cfg chainConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return RequestIDMiddleware(CORSMiddleware(MetricsMiddleware(next, endpoint), cfg.preflight))
}

// RequestIDMiddleware echoes X-Request-ID or assigns a new one, and stores
// it in the request context for logging.
func RequestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
	}
}

// CORSMiddleware sets the allow-origin header on every response. With
// preflight, it also advertises methods and headers and short-circuits
// OPTIONS with 204.
func CORSMiddleware(next http.HandlerFunc, preflight bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(headerAllowOrigin, "*")
		if preflight {
			h.Set(headerAllowMethods, analysisMethods)
			h.Set(headerAllowHeaders, analysisHeaders)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		durationMs := float64(elapsed.Microseconds()) / 1000
		metrics.RecordHTTPStatus(endpoint, r.Method, wrapped.statusCode, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			errorType := getErrorType(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
		}

		logger.Get().Named("http").Debug(r.Context(), "request served",
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.Int("status", wrapped.statusCode),
			logger.Duration("took", elapsed),
		)
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
