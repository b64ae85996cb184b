package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodPost, "/auth/login", http.StatusOK, 20*time.Millisecond)
	c.RecordRequest(http.MethodPost, "/auth/login", http.StatusOK, 30*time.Millisecond)
	c.RecordRequest(http.MethodPost, "/auth/login", http.StatusUnauthorized, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/auth/login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/auth/login", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.requestDuration))
}

func TestCollector_RecordAuthEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent(EventLogin, OutcomeInvalidCredentials)
	c.RecordAuthEvent(EventLogin, OutcomeInvalidCredentials)
	c.RecordAuthEvent(EventSignup, OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authEvents.WithLabelValues(EventLogin, OutcomeInvalidCredentials)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authEvents.WithLabelValues(EventSignup, OutcomeSuccess)))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAuthEvent(EventSignup, OutcomeSuccess)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "breathesense_auth_events_total")
}

func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}
