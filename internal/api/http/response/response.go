// Package response writes JSON bodies for the HTTP API.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/dtroode/breathesense-server/internal/apierrors"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the client-facing part of err.
func Error(w http.ResponseWriter, err *apierrors.APIError) {
	JSON(w, err.HTTPCode, ErrorBody{Error: err.Message})
}
