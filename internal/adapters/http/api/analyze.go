package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// maxBodyBytes bounds the JSON body read for the diet filter.
const maxBodyBytes = 1 << 16

// AnalyzeHandler handles /analyzenutrition.
type AnalyzeHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewAnalyzeHandler creates a new analysis handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, log: logger.Get().Named("api")}
}

type analyzeRequest struct {
	DietType string `json:"dietType"`
}

// HandleAnalyze handles GET and POST /analyzenutrition requests.
// OPTIONS is answered by the CORS middleware.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Code: "method_not_allowed", Error: ErrMethodNotAllowed.Error()})
		return
	}

	diet := dietFilter(r)
	h.log.Info(ctx, "processing diet filter", logger.String("filter", diet), logger.String("method", r.Method))

	res, err := h.deps.Analyze(ctx, diet)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewAnalysisResponse(res, time.Since(start)))
}

// dietFilter reads dietType from the query string, then from a JSON body.
// Anything missing or unreadable selects every diet.
func dietFilter(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("dietType")); v != "" {
		return v
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nutrition.AllDiets
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return nutrition.AllDiets
	}
	var req analyzeRequest
	if err := gojson.Unmarshal(body, &req); err != nil {
		return nutrition.AllDiets
	}
	if v := strings.TrimSpace(req.DietType); v != "" {
		return v
	}
	return nutrition.AllDiets
}
