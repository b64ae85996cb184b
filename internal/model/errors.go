package model

import "errors"

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned by stores when the unique email index rejects a write.
	ErrEmailTaken = errors.New("email already registered")
	// ErrConstraint is returned by stores when a schema constraint rejects a write.
	ErrConstraint = errors.New("constraint violation")
)
