package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Admin action names accepted by the user management endpoint.
const (
	ActionUpdateStatus  = "updateStatus"
	ActionUpdateRole    = "updateRole"
	ActionUpdateProfile = "updateProfile"
)

var (
	// ErrUnknownAction is returned by ParseAdminAction for an unsupported action name.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidActionData is returned by ParseAdminAction when data does not fit the action.
	ErrInvalidActionData = errors.New("invalid action data")
)

// AdminAction is one of UpdateStatus, UpdateRole or UpdateProfile.
type AdminAction interface {
	// Apply mutates u according to the action.
	Apply(u *User)
	// Name returns the wire name of the action.
	Name() string

	adminAction()
}

// UpdateStatus activates or deactivates an account.
type UpdateStatus struct {
	IsActive bool
}

func (a UpdateStatus) Apply(u *User) { u.IsActive = a.IsActive }
func (UpdateStatus) Name() string { return ActionUpdateStatus }
func (UpdateStatus) adminAction() {}

// UpdateRole changes an account role.
type UpdateRole struct {
	Role Role
}

func (a UpdateRole) Apply(u *User) { u.Role = a.Role }
func (UpdateRole) Name() string { return ActionUpdateRole }
func (UpdateRole) adminAction() {}

// UpdateProfile applies a profile patch on behalf of the account owner.
type UpdateProfile struct {
	Patch ProfilePatch
}

func (a UpdateProfile) Apply(u *User) { a.Patch.Apply(u) }
func (UpdateProfile) Name() string { return ActionUpdateProfile }
func (UpdateProfile) adminAction() {}

// ParseAdminAction decodes data into the variant selected by name.
func ParseAdminAction(name string, data json.RawMessage) (AdminAction, error) {
	switch name {
	case ActionUpdateStatus:
		var body struct {
			IsActive *bool `json:"isActive"`
		}
		if err := decodeActionData(data, &body); err != nil || body.IsActive == nil {
			return nil, fmt.Errorf("%w: isActive must be a boolean", ErrInvalidActionData)
		}
		return UpdateStatus{IsActive: *body.IsActive}, nil

	case ActionUpdateRole:
		var body struct {
			Role Role `json:"role"`
		}
		if err := decodeActionData(data, &body); err != nil || !body.Role.Valid() {
			return nil, fmt.Errorf("%w: role must be one of: %s, %s", ErrInvalidActionData, RolePatient, RoleAdmin)
		}
		return UpdateRole{Role: body.Role}, nil

	case ActionUpdateProfile:
		var patch ProfilePatch
		if err := decodeActionData(data, &patch); err != nil {
			return nil, fmt.Errorf("%w: data must be a profile object", ErrInvalidActionData)
		}
		return UpdateProfile{Patch: patch}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}

func decodeActionData(data json.RawMessage, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("empty data")
	}
	return json.Unmarshal(data, v)
}
