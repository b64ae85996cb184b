// Package handler implements the account HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/model"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// AccountService defines signup, login and self-service profile operations.
type AccountService interface {
	Signup(ctx context.Context, params model.SignupParams) (model.AuthResult, error)
	Login(ctx context.Context, params model.LoginParams) (model.AuthResult, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (model.User, error)
}

// AdminService defines user management operations.
type AdminService interface {
	ListUsers(ctx context.Context, params model.ListParams) (model.UserPage, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, action model.AdminAction) (model.User, error)
}

var errEmptyBody = errors.New("empty body")

// decodeBody decodes a single JSON value from r into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("failed to decode body: %w", err)
	}
	if dec.More() {
		return errors.New("body must contain a single JSON value")
	}
	return nil
}

// bodyError maps a decodeBody error to its response. An empty body is
// reported as the required fields it is missing.
func bodyError(err error, required ...string) *apierrors.APIError {
	if errors.Is(err, errEmptyBody) && len(required) > 0 {
		return apierrors.NewErrMissingFields(required...)
	}
	return apierrors.NewErrInvalidBody()
}
