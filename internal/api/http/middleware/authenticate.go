package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
)

const bearerPrefix = "Bearer "

// Gate resolves the principal of a request and reports whether it may pass.
type Gate func(r *http.Request) (model.Principal, bool)

// Authenticate validates bearer tokens and enforces role allow-lists.
// It never touches the user store: the role comes from the token claims.
type Authenticate struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenManager model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenManager: tokenManager, contextManager: contextManager, logger: logger}
}

// Authenticate returns the principal carried by the request's bearer token.
// A missing header, another scheme or a token that fails verification all
// yield false.
func (m *Authenticate) Authenticate(r *http.Request) (model.Principal, bool) {
	principal, err := m.resolve(r)
	return principal, err == nil
}

// RequireRole returns a Gate that admits authenticated principals whose role
// is one of roles.
func (m *Authenticate) RequireRole(roles ...model.Role) Gate {
	allowed := slices.Clone(roles)
	return func(r *http.Request) (model.Principal, bool) {
		principal, ok := m.Authenticate(r)
		if !ok || !slices.Contains(allowed, principal.Role) {
			return model.Principal{}, false
		}
		return principal, true
	}
}

// AdminOnly admits administrators.
func (m *Authenticate) AdminOnly() Gate {
	return m.RequireRole(model.RoleAdmin)
}

// PatientOnly admits patients.
func (m *Authenticate) PatientOnly() Gate {
	return m.RequireRole(model.RolePatient)
}

// AnyAuthenticated admits every valid token.
func (m *Authenticate) AnyAuthenticated() Gate {
	return m.RequireRole(model.RolePatient, model.RoleAdmin)
}

// Guard is the HTTP form of RequireRole. It answers 401 when the request is
// not authenticated and 403 when the role is not allowed, and otherwise
// stores the principal in the request context.
func (m *Authenticate) Guard(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := slices.Clone(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, apiErr := m.resolve(r)
			if apiErr != nil {
				m.logger.Debug("Authenticate middleware: request rejected",
					"path", r.URL.Path,
					"reason", apiErr.Message)
				response.Error(w, apiErr)
				return
			}

			recordUser(w, principal.UserID)

			if !slices.Contains(allowed, principal.Role) {
				m.logger.Info("Authenticate middleware: role not allowed",
					"path", r.URL.Path,
					"user_id", principal.UserID,
					"role", principal.Role)
				response.Error(w, apierrors.NewErrInsufficientRole())
				return
			}

			ctx := m.contextManager.SetPrincipalToContext(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Authenticate) resolve(r *http.Request) (model.Principal, *apierrors.APIError) {
	tokenString, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return model.Principal{}, apierrors.NewErrMissingAuthorizationToken()
	}

	principal, err := m.tokenManager.Verify(tokenString)
	if err != nil {
		m.logger.Debug("Authenticate middleware: token verification failed",
			"error", err.Error())
		return model.Principal{}, apierrors.NewErrInvalidAuthorizationToken()
	}

	if principal.UserID == uuid.Nil {
		return model.Principal{}, apierrors.NewErrInvalidAuthorizationToken()
	}

	return principal, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
