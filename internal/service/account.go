package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/breathesense-server/internal/apierrors"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/metrics"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/validation"
)

// dummyPassword is hashed once and compared against for unknown emails so
// that a failed lookup costs as much as a failed password check.
const dummyPassword = "breathesense-timing-equalizer"

// AuthRecorder records signup and login outcomes.
type AuthRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Account implements signup, login and self-service profile operations.
type Account struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	tokenManager model.TokenManager
	validator    *validation.Validator
	recorder     AuthRecorder
	logger       *logger.Logger
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccount(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	tokenManager model.TokenManager,
	validator *validation.Validator,
	recorder AuthRecorder,
	logger *logger.Logger,
) *Account {
	return &Account{
		userStore:    userStore,
		hasher:       hasher,
		tokenManager: tokenManager,
		validator:    validator,
		recorder:     recorder,
		logger:       logger,
		now:          time.Now,
	}
}

func (a *Account) Signup(ctx context.Context, params model.SignupParams) (model.AuthResult, error) {
	a.logger.Debug("Account service: starting signup",
		"email", params.Email)

	if err := a.validator.Signup(&params); err != nil {
		a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeInvalidInput)
		a.logger.Info("Account service: signup rejected",
			"email", params.Email,
			"reason", err.Error())
		return model.AuthResult{}, validationError(err)
	}

	if params.Role == "" {
		params.Role = model.RolePatient
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		a.logger.Error("Account service: failed to hash password",
			"email", params.Email,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now().UTC()
	user := model.User{
		ID:               uuid.New(),
		Email:            params.Email,
		PasswordHash:     hash,
		FirstName:        params.FirstName,
		LastName:         params.LastName,
		Role:             params.Role,
		DateOfBirth:      params.DateOfBirth,
		PhoneNumber:      params.PhoneNumber,
		Address:          params.Address,
		MedicalHistory:   params.MedicalHistory,
		EmergencyContact: params.EmergencyContact,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	saved, err := a.userStore.Create(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmailTaken):
			a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeEmailTaken)
			a.logger.Info("Account service: email already registered",
				"email", params.Email)
			return model.AuthResult{}, apierrors.NewErrEmailIsTaken(params.Email)
		case errors.Is(err, model.ErrConstraint):
			a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeInvalidInput)
			return model.AuthResult{}, apierrors.NewErrValidation(err.Error())
		}
		a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		a.logger.Error("Account service: failed to create user",
			"email", params.Email,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to create user: %w", err)
	}
	saved.PasswordHash = ""

	token, err := a.tokenManager.Issue(saved)
	if err != nil {
		a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		a.logger.Error("Account service: failed to issue token",
			"user_id", saved.ID,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to issue token: %w", err)
	}

	a.recorder.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeSuccess)
	a.logger.Info("Account service: user signed up",
		"user_id", saved.ID,
		"role", saved.Role)

	return model.AuthResult{User: saved, Token: token}, nil
}

func (a *Account) Login(ctx context.Context, params model.LoginParams) (model.AuthResult, error) {
	email := validation.NormalizeEmail(params.Email)

	a.logger.Debug("Account service: starting login",
		"email", email)

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if params.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeInvalidInput)
		return model.AuthResult{}, apierrors.NewErrMissingFields(missing...)
	}

	user, err := a.userStore.GetByEmailWithCredential(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.hasher.Verify(params.Password, a.dummy())
			a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeInvalidCredentials)
			a.logger.Info("Account service: login with unknown email",
				"email", email)
			return model.AuthResult{}, apierrors.NewErrInvalidCredentials()
		}
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		a.logger.Error("Account service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !a.hasher.Verify(params.Password, user.PasswordHash) {
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeInvalidCredentials)
		a.logger.Info("Account service: login with wrong password",
			"user_id", user.ID)
		return model.AuthResult{}, apierrors.NewErrInvalidCredentials()
	}
	user.PasswordHash = ""

	if !user.IsActive {
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeDeactivated)
		a.logger.Info("Account service: login to deactivated account",
			"user_id", user.ID)
		return model.AuthResult{}, apierrors.NewErrAccountDeactivated()
	}

	now := a.now().UTC()
	if err := a.userStore.UpdateLastLogin(ctx, user.ID, now); err != nil {
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		a.logger.Error("Account service: failed to update last login",
			"user_id", user.ID,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLogin = &now

	token, err := a.tokenManager.Issue(user)
	if err != nil {
		a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		a.logger.Error("Account service: failed to issue token",
			"user_id", user.ID,
			"error", err.Error())
		return model.AuthResult{}, fmt.Errorf("failed to issue token: %w", err)
	}

	a.recorder.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeSuccess)
	a.logger.Info("Account service: user logged in",
		"user_id", user.ID)

	return model.AuthResult{User: user, Token: token}, nil
}

func (a *Account) GetProfile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.logger.Info("Account service: profile not found",
				"user_id", userID)
			return model.User{}, apierrors.NewErrUserNotFound()
		}
		a.logger.Error("Account service: failed to get user",
			"user_id", userID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (a *Account) UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (model.User, error) {
	a.logger.Debug("Account service: updating profile",
		"user_id", userID)

	if err := a.validator.Profile(&patch); err != nil {
		return model.User{}, validationError(err)
	}

	user, err := a.GetProfile(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	patch.Apply(&user)
	user.UpdatedAt = a.now().UTC()

	updated, err := saveUser(ctx, a.userStore, user)
	if err != nil {
		a.logger.Error("Account service: failed to update profile",
			"user_id", userID,
			"error", err.Error())
		return model.User{}, err
	}

	a.logger.Info("Account service: profile updated",
		"user_id", userID)

	return updated, nil
}

func (a *Account) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash(dummyPassword)
		if err != nil {
			a.logger.Error("Account service: failed to prepare dummy hash",
				"error", err.Error())
			return
		}
		a.dummyHash = hash
	})
	return a.dummyHash
}

// saveUser writes user and translates store sentinels into API errors.
func saveUser(ctx context.Context, store model.UserStore, user model.User) (model.User, error) {
	updated, err := store.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return model.User{}, apierrors.NewErrUserNotFound()
		case errors.Is(err, model.ErrConstraint):
			return model.User{}, apierrors.NewErrValidation(err.Error())
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// validationError converts a validator failure into the client-facing error.
func validationError(err error) error {
	var fe *validation.FieldError
	if !errors.As(err, &fe) {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	if len(fe.Missing) > 0 {
		return apierrors.NewErrMissingFields(fe.Missing...)
	}
	return apierrors.NewErrValidation(fe.Problems...)
}
