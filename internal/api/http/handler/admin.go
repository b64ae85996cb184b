package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
)

// UpdateUserRequest is the body of PUT /admin/users.
type UpdateUserRequest struct {
	UserID string          `json:"userId"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Admin handles HTTP endpoints for user management.
type Admin struct {
	adminService AdminService
	logger       *logger.Logger
}

// NewAdmin creates a new Admin handler.
func NewAdmin(adminService AdminService, logger *logger.Logger) *Admin {
	return &Admin{adminService: adminService, logger: logger}
}

// ListUsers returns a page of users filtered by role and search text.
func (h *Admin) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var problems []string
	page, ok := parseInt(q.Get("page"))
	if !ok {
		problems = append(problems, "page must be a number")
	}
	limit, ok := parseInt(q.Get("limit"))
	if !ok {
		problems = append(problems, "limit must be a number")
	}
	if len(problems) > 0 {
		response.Error(w, apierrors.NewErrValidation(problems...))
		return
	}

	result, err := h.adminService.ListUsers(r.Context(), model.ListParams{
		Page:   page,
		Limit:  limit,
		Role:   strings.TrimSpace(q.Get("role")),
		Search: strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// UpdateUser applies one administrative action to a user.
func (h *Admin) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debug("Admin handler: invalid update body", "error", err.Error())
		response.Error(w, bodyError(err, "userId", "action"))
		return
	}

	if strings.TrimSpace(req.UserID) == "" || req.Action == "" {
		var missing []string
		if strings.TrimSpace(req.UserID) == "" {
			missing = append(missing, "userId")
		}
		if req.Action == "" {
			missing = append(missing, "action")
		}
		response.Error(w, apierrors.NewErrMissingFields(missing...))
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		response.Error(w, apierrors.NewErrValidation("userId must be a valid id"))
		return
	}

	action, err := model.ParseAdminAction(req.Action, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownAction):
			response.Error(w, apierrors.NewErrInvalidAction(req.Action))
		default:
			msg := strings.TrimPrefix(err.Error(), model.ErrInvalidActionData.Error()+": ")
			response.Error(w, apierrors.NewErrValidation(msg))
		}
		return
	}

	user, err := h.adminService.UpdateUser(r.Context(), userID, action)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Admin handler: user updated",
		"user_id", userID,
		"action", action.Name())

	response.JSON(w, http.StatusOK, UserResponse{Message: "User updated successfully", User: user})
}

// parseInt parses an optional integer query value. Empty means zero.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
