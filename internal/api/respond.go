package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
)

// handleError converts domain errors to HTTP responses. Anything without a
// status is logged in full and reported as a generic 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		respondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}
	s.log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondJSON marshals first so an encoding failure never leaves a partial
// response behind.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.S().Errorw("encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
