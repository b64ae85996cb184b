package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpContext "github.com/dtroode/breathesense-server/internal/api/http/context"
	"github.com/dtroode/breathesense-server/internal/mocks"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/testutil"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi", wantOK: true},
		{name: "empty header", header: ""},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "lower-case scheme", header: "bearer abc"},
		{name: "no token", header: "Bearer "},
		{name: "extra parts", header: "Bearer abc def"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate_Guard(t *testing.T) {
	t.Parallel()

	patient := model.Principal{UserID: uuid.New(), Email: "p@example.com", Role: model.RolePatient}
	admin := model.Principal{UserID: uuid.New(), Email: "a@example.com", Role: model.RoleAdmin}

	tests := []struct {
		name       string
		header     string
		roles      []model.Role
		verifyWith *model.Principal
		verifyErr  error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing token",
			roles:      []model.Role{model.RolePatient, model.RoleAdmin},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "authorization token is required",
		},
		{
			name:       "invalid token",
			header:     "Bearer broken",
			roles:      []model.Role{model.RolePatient},
			verifyErr:  errors.New("signature is invalid"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid or expired authorization token",
		},
		{
			name:       "nil user id",
			header:     "Bearer token",
			roles:      []model.Role{model.RolePatient},
			verifyWith: &model.Principal{Role: model.RolePatient},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "patient on admin route",
			header:     "Bearer token",
			roles:      []model.Role{model.RoleAdmin},
			verifyWith: &patient,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin on admin route",
			header:     "Bearer token",
			roles:      []model.Role{model.RoleAdmin},
			verifyWith: &admin,
			wantStatus: http.StatusOK,
		},
		{
			name:       "patient on any route",
			header:     "Bearer token",
			roles:      []model.Role{model.RolePatient, model.RoleAdmin},
			verifyWith: &patient,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tm := mocks.NewTokenManager(t)
			if tt.verifyWith != nil {
				tm.On("Verify", "token").Return(*tt.verifyWith, nil)
			}
			if tt.verifyErr != nil {
				tm.On("Verify", "broken").Return(model.Principal{}, tt.verifyErr)
			}

			cm := httpContext.NewManager()
			m := NewAuthenticate(tm, cm, testutil.MakeNoopLogger())

			var reached bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				p, ok := cm.GetPrincipalFromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, tt.verifyWith.UserID, p.UserID)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			m.Guard(tt.roles...)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, reached)
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAuthenticate_Gates(t *testing.T) {
	t.Parallel()

	admin := model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}

	tm := mocks.NewTokenManager(t)
	tm.On("Verify", "token").Return(admin, nil)

	m := NewAuthenticate(tm, httpContext.NewManager(), testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")

	p, ok := m.AdminOnly()(req)
	assert.True(t, ok)
	assert.Equal(t, admin.UserID, p.UserID)

	_, ok = m.PatientOnly()(req)
	assert.False(t, ok)

	_, ok = m.AnyAuthenticated()(req)
	assert.True(t, ok)

	_, ok = m.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestAuthenticate_Guard_RecordsUser(t *testing.T) {
	t.Parallel()

	principal := model.Principal{UserID: uuid.New(), Role: model.RolePatient}
	tm := mocks.NewTokenManager(t)
	tm.On("Verify", "token").Return(principal, nil)

	m := NewAuthenticate(tm, httpContext.NewManager(), testutil.MakeNoopLogger())

	rec := newStatusRecorder(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer token")

	m.Guard(model.RolePatient)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	assert.Equal(t, principal.UserID, rec.userID)
}
