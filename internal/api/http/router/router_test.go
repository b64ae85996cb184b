package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpContext "github.com/dtroode/breathesense-server/internal/api/http/context"
	"github.com/dtroode/breathesense-server/internal/api/http/middleware"
	"github.com/dtroode/breathesense-server/internal/metrics"
	"github.com/dtroode/breathesense-server/internal/mocks"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/testutil"
	"github.com/dtroode/breathesense-server/internal/token"
)

type testEnv struct {
	handler http.Handler
	account *mocks.AccountService
	admin   *mocks.AdminService
	store   *mocks.UserStore
	tokens  *token.JWT
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	tokens, err := token.NewJWT("router-test-secret")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	env := testEnv{
		account: mocks.NewAccountService(t),
		admin:   mocks.NewAdminService(t),
		store:   mocks.NewUserStore(t),
		tokens:  tokens,
	}
	env.handler = New(Deps{
		AccountService: env.account,
		AdminService:   env.admin,
		Store:          env.store,
		TokenManager:   tokens,
		ContextManager: httpContext.NewManager(),
		RateLimiter:    middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: middleware.PerMinute(60), Burst: 2}, testutil.MakeNoopLogger()),
		Metrics:        metrics.NewCollector(reg),
		MetricsHandler: metrics.Handler(reg),
		Logger:         testutil.MakeNoopLogger(),
	}).Register()

	return env
}

func (e testEnv) bearer(t *testing.T, role model.Role) (uuid.UUID, string) {
	t.Helper()

	id := uuid.New()
	tok, err := e.tokens.Issue(model.User{ID: id, Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return id, "Bearer " + tok
}

func (e testEnv) do(method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Access(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	patientID, patient := env.bearer(t, model.RolePatient)
	_, admin := env.bearer(t, model.RoleAdmin)

	env.account.On("GetProfile", mock.Anything, patientID).Return(model.User{ID: patientID}, nil)
	env.admin.On("ListUsers", mock.Anything, model.ListParams{}).Return(model.UserPage{Users: []model.User{}}, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{name: "profile without token", method: http.MethodGet, path: "/auth/profile", wantStatus: http.StatusUnauthorized},
		{name: "profile with garbage token", method: http.MethodGet, path: "/auth/profile", auth: "Bearer garbage", wantStatus: http.StatusUnauthorized},
		{name: "profile with basic auth", method: http.MethodGet, path: "/auth/profile", auth: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "profile as patient", method: http.MethodGet, path: "/auth/profile", auth: patient, wantStatus: http.StatusOK},
		{name: "admin list as patient", method: http.MethodGet, path: "/admin/users", auth: patient, wantStatus: http.StatusForbidden},
		{name: "admin list without token", method: http.MethodGet, path: "/admin/users", wantStatus: http.StatusUnauthorized},
		{name: "admin list as admin", method: http.MethodGet, path: "/admin/users", auth: admin, wantStatus: http.StatusOK},
		{name: "logout is public", method: http.MethodPost, path: "/auth/logout", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/auth/login", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.method, tt.path, tt.auth, "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRouter_CredentialEndpointsAreRateLimited(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rr := env.do(http.MethodPost, "/auth/login", "", `{`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	}

	rr := env.do(http.MethodPost, "/auth/login", "", `{`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Logout shares the client but not the limit.
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/auth/logout", "", "").Code)
}

func TestRouter_RateLimitIgnoresForwardingHeaders(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	login := func(forwarded, realIP string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", realIP)
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusBadRequest, login("203.0.113.1", "198.51.100.1").Code)
	assert.Equal(t, http.StatusBadRequest, login("203.0.113.2", "198.51.100.2").Code)

	rr := login("203.0.113.3", "198.51.100.3")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.store.On("Ping", mock.Anything).Return(nil)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "", "").Code)

	rr := env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `breathesense_http_requests_total{method="GET",route="/health",status_code="200"} 1`)
}
