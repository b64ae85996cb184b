// Package apierrors defines the client-facing error taxonomy of the account API.
package apierrors

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is an error that carries the HTTP status and the message safe to
// show to the client. Err, when set, is the internal cause and is only logged.
type APIError struct {
	HTTPCode int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewErrValidation reports missing or malformed fields, naming each of them.
func NewErrValidation(problems ...string) *APIError {
	return &APIError{
		HTTPCode: http.StatusBadRequest,
		Message:  strings.Join(problems, "; "),
	}
}

// NewErrMissingFields reports absent required fields.
func NewErrMissingFields(fields ...string) *APIError {
	return &APIError{
		HTTPCode: http.StatusBadRequest,
		Message:  fmt.Sprintf("missing required fields: %s", strings.Join(fields, ", ")),
	}
}

// NewErrInvalidBody reports a request body that could not be decoded.
func NewErrInvalidBody() *APIError {
	return &APIError{
		HTTPCode: http.StatusBadRequest,
		Message:  "invalid request body",
	}
}

// NewErrInvalidAction reports an unknown admin action.
func NewErrInvalidAction(action string) *APIError {
	return &APIError{
		HTTPCode: http.StatusBadRequest,
		Message:  fmt.Sprintf("invalid action %q", action),
	}
}

// NewErrInvalidCredentials is returned for both unknown email and wrong password.
func NewErrInvalidCredentials() *APIError {
	return &APIError{
		HTTPCode: http.StatusUnauthorized,
		Message:  "invalid email or password",
	}
}

// NewErrMissingAuthorizationToken reports a request without a bearer token.
func NewErrMissingAuthorizationToken() *APIError {
	return &APIError{
		HTTPCode: http.StatusUnauthorized,
		Message:  "authorization token is required",
	}
}

// NewErrInvalidAuthorizationToken reports a token that failed verification.
func NewErrInvalidAuthorizationToken() *APIError {
	return &APIError{
		HTTPCode: http.StatusUnauthorized,
		Message:  "invalid or expired authorization token",
	}
}

// NewErrAccountDeactivated reports a login to an inactive account.
func NewErrAccountDeactivated() *APIError {
	return &APIError{
		HTTPCode: http.StatusForbidden,
		Message:  "account is deactivated",
	}
}

// NewErrInsufficientRole reports a principal outside the allowed roles.
func NewErrInsufficientRole() *APIError {
	return &APIError{
		HTTPCode: http.StatusForbidden,
		Message:  "insufficient permissions",
	}
}

// NewErrUserNotFound reports a missing user record.
func NewErrUserNotFound() *APIError {
	return &APIError{
		HTTPCode: http.StatusNotFound,
		Message:  "user not found",
	}
}

// NewErrEmailIsTaken reports a duplicate registration.
func NewErrEmailIsTaken(email string) *APIError {
	return &APIError{
		HTTPCode: http.StatusConflict,
		Message:  fmt.Sprintf("email %s is already registered", email),
	}
}

// NewErrTooManyRequests reports a rate limited client.
func NewErrTooManyRequests() *APIError {
	return &APIError{
		HTTPCode: http.StatusTooManyRequests,
		Message:  "too many requests, try again later",
	}
}

// NewErrInternalServerError hides err behind a generic message.
func NewErrInternalServerError(err error) *APIError {
	return &APIError{
		HTTPCode: http.StatusInternalServerError,
		Message:  "internal server error",
		Err:      err,
	}
}
