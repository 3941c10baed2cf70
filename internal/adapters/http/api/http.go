// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Analyze loads the dataset and analyzes it for diet.
	Analyze(ctx context.Context, diet string) (*nutrition.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	metricsHandler *MetricsHandler
	analyzeHandler *AnalyzeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		metricsHandler: NewMetricsHandler(),
		analyzeHandler: NewAnalyzeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/analyzenutrition", Chain(s.analyzeHandler.HandleAnalyze, "analyzenutrition", WithAnalysisCORS()))
	mux.HandleFunc("/health", Chain(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/metrics", Chain(s.metricsHandler.HandleMetrics, "metrics"))

	logger.Get().Named("api").Info(ctx, "api routes registered",
		logger.Any("routes", []string{"/analyzenutrition", "/health", "/metrics"}),
	)
}

// AnalysisResponse is the 200 envelope around a Result.
type AnalysisResponse struct {
	Success       bool   `json:"success"`
	ExecutionTime string `json:"executionTime"`
	*nutrition.Result
}

// NewAnalysisResponse wraps res with the elapsed handling time.
func NewAnalysisResponse(res *nutrition.Result, elapsed time.Duration) AnalysisResponse {
	return AnalysisResponse{
		Success:       true,
		ExecutionTime: fmt.Sprintf("%dms", elapsed.Milliseconds()),
		Result:        res,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := NewErrorResponse(err)
	writeJSON(w, status, body)
}
