package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/model"
)

type principalKey struct{}

// Manager stores the authenticated principal in a request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

var _ model.ContextManager = (*Manager)(nil)

// SetPrincipalToContext returns a copy of ctx carrying principal.
func (m *Manager) SetPrincipalToContext(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipalFromContext returns the principal stored by SetPrincipalToContext.
// A principal with a nil user ID is treated as absent.
func (m *Manager) GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(model.Principal)
	if !ok || principal.UserID == uuid.Nil {
		return model.Principal{}, false
	}
	return principal, true
}
