package api

import (
	"encoding/json"
	"net/http"

	"github.com/septivank/device-registry/internal/logging"
	"github.com/septivank/device-registry/internal/service"
	"go.uber.org/zap"
)

const msgInternalError = "internal server error"

// statusCode maps a service result kind to its HTTP status
func statusCode(s service.Status) int {
	switch s {
	case service.StatusOK:
		return http.StatusOK
	case service.StatusCreated:
		return http.StatusCreated
	case service.StatusBadRequest:
		return http.StatusBadRequest
	case service.StatusNotFound:
		return http.StatusNotFound
	case service.StatusConflict:
		return http.StatusConflict
	case service.StatusNoContent:
		return http.StatusNoContent
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code and payload
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		// the client may already be gone
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, service.ErrorResponse{Error: message})
}

// render writes a service outcome. Storage errors are logged and reported
// without their text.
func (h *handler) render(w http.ResponseWriter, r *http.Request, res service.Result, err error) {
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	status := statusCode(res.Status)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, res.Body)
}

// decode reads a JSON body into v, answering 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}
