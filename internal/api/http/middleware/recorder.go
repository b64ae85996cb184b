package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// statusRecorder captures the response status and the authenticated user
// for access logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
	userID     uuid.UUID
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// recordUser attaches userID to the access log entry of w, if w is recorded.
func recordUser(w http.ResponseWriter, userID uuid.UUID) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.userID = userID
	}
}
