package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for user records.
//
// Create must enforce email uniqueness atomically and report a clash as
// ErrEmailTaken. Lookups that find nothing return ErrNotFound. Only
// GetByEmailWithCredential populates PasswordHash.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmailWithCredential(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, user User) (User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, filter ListFilter) ([]User, int64, error)
	Ping(ctx context.Context) error
}

// Role enumerates account roles.
type Role string

const (
	// RolePatient is the default role for self-registered accounts.
	RolePatient Role = "patient"
	// RoleAdmin grants access to user management.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleAdmin
}

// User represents a stored account.
type User struct {
	ID               uuid.UUID         `json:"id"`
	Email            string            `json:"email"`
	PasswordHash     string            `json:"-"`
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	Role             Role              `json:"role"`
	DateOfBirth      *time.Time        `json:"dateOfBirth,omitempty"`
	PhoneNumber      string            `json:"phoneNumber,omitempty"`
	Address          *Address          `json:"address,omitempty"`
	MedicalHistory   *MedicalHistory   `json:"medicalHistory,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
	IsActive         bool              `json:"isActive"`
	LastLogin        *time.Time        `json:"lastLogin,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Address is a postal address.
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty" validate:"max=100"`
	City    string `json:"city,omitempty" bson:"city,omitempty" validate:"max=100"`
	State   string `json:"state,omitempty" bson:"state,omitempty" validate:"max=100"`
	ZipCode string `json:"zipCode,omitempty" bson:"zipCode,omitempty" validate:"max=20"`
	Country string `json:"country,omitempty" bson:"country,omitempty" validate:"max=100"`
}

// MedicalHistory lists patient-reported conditions.
type MedicalHistory struct {
	Conditions  []string `json:"conditions,omitempty" bson:"conditions,omitempty" validate:"max=50,dive,max=200"`
	Medications []string `json:"medications,omitempty" bson:"medications,omitempty" validate:"max=50,dive,max=200"`
	Allergies   []string `json:"allergies,omitempty" bson:"allergies,omitempty" validate:"max=50,dive,max=200"`
}

// EmergencyContact is the person to call on behalf of the user.
type EmergencyContact struct {
	Name         string `json:"name,omitempty" bson:"name,omitempty" validate:"max=100"`
	Relationship string `json:"relationship,omitempty" bson:"relationship,omitempty" validate:"max=50"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,phone"`
	Email        string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
}

// ProfilePatch holds the caller-owned profile fields. Nil fields are left
// unchanged. Identity, credential, role, status and timestamps are not part
// of it, so decoding a request body into it drops them.
type ProfilePatch struct {
	FirstName        *string           `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName         *string           `json:"lastName" validate:"omitempty,min=1,max=50"`
	DateOfBirth      *time.Time        `json:"dateOfBirth" validate:"omitempty,past"`
	PhoneNumber      *string           `json:"phoneNumber" validate:"omitempty,phone"`
	Address          *Address          `json:"address"`
	MedicalHistory   *MedicalHistory   `json:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

// Apply copies the non-nil fields of p onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		u.DateOfBirth = &dob
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Address != nil {
		addr := *p.Address
		u.Address = &addr
	}
	if p.MedicalHistory != nil {
		mh := *p.MedicalHistory
		u.MedicalHistory = &mh
	}
	if p.EmergencyContact != nil {
		ec := *p.EmergencyContact
		u.EmergencyContact = &ec
	}
}

// SignupParams contains the fields accepted at registration.
type SignupParams struct {
	Email            string            `json:"email" validate:"required,email,max=254"`
	Password         string            `json:"password" validate:"required,min=8"`
	FirstName        string            `json:"firstName" validate:"required,max=50"`
	LastName         string            `json:"lastName" validate:"required,max=50"`
	Role             Role              `json:"role" validate:"omitempty,role"`
	DateOfBirth      *time.Time        `json:"dateOfBirth" validate:"omitempty,past"`
	PhoneNumber      string            `json:"phoneNumber" validate:"omitempty,phone"`
	Address          *Address          `json:"address"`
	MedicalHistory   *MedicalHistory   `json:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

// LoginParams contains login credentials.
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ListParams is a user listing request. Zero Page and Limit select the defaults.
type ListParams struct {
	Page   int64
	Limit  int64
	Role   string
	Search string
}

// ListFilter selects a page of users. Offset and Limit are already resolved
// from the page number.
type ListFilter struct {
	Role   *Role
	Search string
	Offset int64
	Limit  int64
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// UserPage is one page of users together with its pagination.
type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}
