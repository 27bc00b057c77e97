package domain

import "errors"

var (
	// ErrEmailTaken is returned when signing up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a wrong password on login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no user record matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrRouteNotFound indicates no route record matches the lookup.
	ErrRouteNotFound = errors.New("route not found")
	// ErrExportNotFound indicates no export job matches the lookup.
	ErrExportNotFound = errors.New("export job not found")
	// ErrInsufficientCredits is returned when a debit finds a zero balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidToken indicates a malformed or badly signed session token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a session token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrValidation indicates malformed input rejected before any mutation.
	ErrValidation = errors.New("validation failed")
)
