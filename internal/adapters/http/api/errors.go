package api

import (
	"errors"
	"net/http"

	"github.com/okian/dietlens/internal/domain/nutrition"
)

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// failureMessage accompanies every 500 response.
const failureMessage = "Failed to process nutritional data"

// statusFor maps an error kind onto an HTTP status. Only NotFound is a
// client-visible miss; every other kind is a server failure.
func statusFor(kind nutrition.Kind) int {
	if kind == nutrition.KindNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// NewErrorResponse classifies err into a status code and response body.
func NewErrorResponse(err error) (int, ErrorResponse) {
	kind := nutrition.KindOf(err)
	status := statusFor(kind)
	body := ErrorResponse{Success: false, Code: string(kind), Error: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = failureMessage
	}
	return status, body
}
