package httpadapter

import (
	"net/http"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain error kinds to status codes. Internal detail stays
// in the logs; 5xx bodies carry a generic message only.
func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		message = "backend unavailable"
	case http.StatusInternalServerError:
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
