package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrInvalidRole        = errors.New("role must be student or mentor")
	ErrInactiveAccount    = errors.New("your account is inactive. Please contact support")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
