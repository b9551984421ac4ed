package auth

import "errors"

var (
	// ErrInvalidToken covers bad signatures, wrong issuer, expiry and unexpected algorithms.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCredentials is returned when email and password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
