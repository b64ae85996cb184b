package model

import "errors"

var (
	// ErrTokenExpired is returned by TokenManager.Verify for a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by TokenManager.Verify for any other rejected token.
	ErrTokenInvalid = errors.New("token invalid")
)
