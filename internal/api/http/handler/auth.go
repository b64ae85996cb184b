package handler

import (
	"net/http"

	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
)

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
	Token   string     `json:"token"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Message string     `json:"message,omitempty"`
	User    model.User `json:"user"`
}

// MessageResponse carries only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Auth handles HTTP endpoints for authentication and the caller's profile.
type Auth struct {
	accountService AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(accountService AccountService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		accountService: accountService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Signup registers a new account and returns it with a token.
func (h *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var params model.SignupParams
	if err := decodeBody(w, r, &params); err != nil {
		h.logger.Debug("Auth handler: invalid signup body", "error", err.Error())
		response.Error(w, bodyError(err, "email", "password", "firstName", "lastName"))
		return
	}

	result, err := h.accountService.Signup(r.Context(), params)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		User:    result.User,
		Token:   result.Token,
	})
}

// Login verifies credentials and returns a token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var params model.LoginParams
	if err := decodeBody(w, r, &params); err != nil {
		h.logger.Debug("Auth handler: invalid login body", "error", err.Error())
		response.Error(w, bodyError(err, "email", "password"))
		return
	}

	result, err := h.accountService.Login(r.Context(), params)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful",
		User:    result.User,
		Token:   result.Token,
	})
}

// Logout always succeeds. Tokens are stateless, so the client discards its copy.
func (h *Auth) Logout(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// GetProfile returns the caller's account.
func (h *Auth) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	user, err := h.accountService.GetProfile(r.Context(), principal.UserID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, UserResponse{User: user})
}

// UpdateProfile applies the caller-owned fields of the body to the caller's
// account. Other fields in the body are ignored.
func (h *Auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var patch model.ProfilePatch
	if err := decodeBody(w, r, &patch); err != nil {
		h.logger.Debug("Auth handler: invalid profile body",
			"user_id", principal.UserID,
			"error", err.Error())
		response.Error(w, bodyError(err))
		return
	}

	user, err := h.accountService.UpdateProfile(r.Context(), principal.UserID, patch)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, UserResponse{Message: "Profile updated successfully", User: user})
}
