package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/validation"
)

// Paging defaults and bounds for user listing.
const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10
	MaxLimit     int64 = 100
)

// Admin implements user management for administrators.
type Admin struct {
	userStore model.UserStore
	validator *validation.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewAdmin(userStore model.UserStore, validator *validation.Validator, logger *logger.Logger) *Admin {
	return &Admin{
		userStore: userStore,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func (a *Admin) ListUsers(ctx context.Context, params model.ListParams) (model.UserPage, error) {
	page, limit := params.Page, params.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	var problems []string
	if page < 1 {
		problems = append(problems, "page must be a positive integer")
	}
	if limit < 1 || limit > MaxLimit {
		problems = append(problems, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	// The offset must fit in int64.
	if page > 1 && limit > 0 && page-1 > math.MaxInt64/limit {
		problems = append(problems, "page is too large")
	}

	filter := model.ListFilter{
		Search: strings.TrimSpace(params.Search),
		Limit:  limit,
	}
	if len(problems) == 0 {
		filter.Offset = (page - 1) * limit
	}
	if params.Role != "" {
		role := model.Role(params.Role)
		if !role.Valid() {
			problems = append(problems, fmt.Sprintf("role must be one of: %s, %s", model.RolePatient, model.RoleAdmin))
		}
		filter.Role = &role
	}
	if len(problems) > 0 {
		return model.UserPage{}, apierrors.NewErrValidation(problems...)
	}

	a.logger.Debug("Admin service: listing users",
		"page", page,
		"limit", limit,
		"role", params.Role,
		"search", filter.Search)

	users, total, err := a.userStore.List(ctx, filter)
	if err != nil {
		a.logger.Error("Admin service: failed to list users",
			"error", err.Error())
		return model.UserPage{}, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}

	return model.UserPage{
		Users: users,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

func (a *Admin) UpdateUser(ctx context.Context, userID uuid.UUID, action model.AdminAction) (model.User, error) {
	a.logger.Debug("Admin service: updating user",
		"user_id", userID,
		"action", action.Name())

	if profile, ok := action.(model.UpdateProfile); ok {
		if err := a.validator.Profile(&profile.Patch); err != nil {
			return model.User{}, validationError(err)
		}
		action = profile
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apierrors.NewErrUserNotFound()
		}
		a.logger.Error("Admin service: failed to get user",
			"user_id", userID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	action.Apply(&user)
	user.UpdatedAt = a.now().UTC()

	updated, err := saveUser(ctx, a.userStore, user)
	if err != nil {
		a.logger.Error("Admin service: failed to update user",
			"user_id", userID,
			"action", action.Name(),
			"error", err.Error())
		return model.User{}, err
	}

	a.logger.Info("Admin service: user updated",
		"user_id", userID,
		"action", action.Name())

	return updated, nil
}
