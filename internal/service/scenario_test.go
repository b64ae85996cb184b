package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/breathesense-server/internal/metrics"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/password"
	"github.com/dtroode/breathesense-server/internal/testutil"
	"github.com/dtroode/breathesense-server/internal/token"
	"github.com/dtroode/breathesense-server/internal/validation"
)

// memStore is an in-memory UserStore with a unique email index.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]model.User)}
}

func (s *memStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return model.User{}, model.ErrEmailTaken
		}
	}
	s.users[user.ID] = user
	user.PasswordHash = ""
	return user, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *memStore) GetByEmailWithCredential(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memStore) Update(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.users[user.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	user.Email = prev.Email
	user.PasswordHash = prev.PasswordHash
	user.CreatedAt = prev.CreatedAt
	user.LastLogin = prev.LastLogin
	s.users[user.ID] = user
	user.PasswordHash = ""
	return user, nil
}

func (s *memStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *memStore) List(_ context.Context, filter model.ListFilter) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(u.FirstName), q) &&
			!strings.Contains(strings.ToLower(u.LastName), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func TestAccountScenario(t *testing.T) {
	store := newMemStore()
	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	jwt, err := token.NewJWT("scenario-secret")
	require.NoError(t, err)
	v := validation.New()
	log := testutil.MakeNoopLogger()

	accounts := NewAccount(store, hasher, jwt, v, metrics.NewCollector(prometheus.NewRegistry()), log)
	admins := NewAdmin(store, v, log)
	ctx := context.Background()

	signup, err := accounts.Signup(ctx, model.SignupParams{
		Email:     "alice@example.com",
		Password:  "password123",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	assert.Empty(t, signup.User.PasswordHash)
	assert.Equal(t, 1, store.count())

	_, err = accounts.Signup(ctx, model.SignupParams{
		Email:     "ALICE@example.com",
		Password:  "password456",
		FirstName: "Other",
		LastName:  "Alice",
	})
	requireAPIError(t, err, http.StatusConflict)
	assert.Equal(t, 1, store.count())

	_, err = accounts.Signup(ctx, model.SignupParams{
		Email:     "shorty@example.com",
		Password:  "short",
		FirstName: "S",
		LastName:  "P",
	})
	requireAPIError(t, err, http.StatusBadRequest)
	assert.Equal(t, 1, store.count())

	login, err := accounts.Login(ctx, model.LoginParams{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	principal, err := jwt.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, principal.Role)
	assert.Equal(t, signup.User.ID, principal.UserID)

	profile, err := accounts.GetProfile(ctx, principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Empty(t, profile.PasswordHash)
	assert.NotNil(t, profile.LastLogin)

	_, err = accounts.Signup(ctx, model.SignupParams{
		Email:     "admin@example.com",
		Password:  "admin-password",
		FirstName: "Ada",
		LastName:  "Admin",
		Role:      model.RoleAdmin,
	})
	require.NoError(t, err)

	page, err := admins.ListUsers(ctx, model.ListParams{Role: string(model.RolePatient)})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "alice@example.com", page.Users[0].Email)

	_, err = admins.UpdateUser(ctx, principal.UserID, model.UpdateStatus{IsActive: false})
	require.NoError(t, err)

	_, err = accounts.Login(ctx, model.LoginParams{Email: "alice@example.com", Password: "password123"})
	requireAPIError(t, err, http.StatusForbidden)

	_, err = accounts.Login(ctx, model.LoginParams{Email: "alice@example.com", Password: "wrong-password"})
	wrong := requireAPIError(t, err, http.StatusUnauthorized)
	_, err = accounts.Login(ctx, model.LoginParams{Email: "nobody@example.com", Password: "password123"})
	unknown := requireAPIError(t, err, http.StatusUnauthorized)
	assert.Equal(t, wrong.Message, unknown.Message)
}
