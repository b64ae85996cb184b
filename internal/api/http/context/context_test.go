package context

import (
	stdctx "context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/breathesense-server/internal/model"
)

func TestManager_SetAndGetPrincipal(t *testing.T) {
	m := NewManager()
	p := model.Principal{UserID: uuid.New(), Email: "a@example.com", Role: model.RoleAdmin}
	ctx := m.SetPrincipalToContext(stdctx.Background(), p)

	got, ok := m.GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestManager_GetPrincipal_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetPrincipalFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_GetPrincipal_NilUserID(t *testing.T) {
	m := NewManager()
	ctx := m.SetPrincipalToContext(stdctx.Background(), model.Principal{Role: model.RolePatient})
	_, ok := m.GetPrincipalFromContext(ctx)
	assert.False(t, ok)
}

func TestManager_OverridesPrincipal(t *testing.T) {
	m := NewManager()
	first := model.Principal{UserID: uuid.New(), Role: model.RolePatient}
	second := model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}

	ctx := m.SetPrincipalToContext(stdctx.Background(), first)
	ctx = m.SetPrincipalToContext(ctx, second)

	got, ok := m.GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, second.UserID, got.UserID)
}
