package auth

import "errors"

var (
	// ErrUnauthorizedCredentials is the single outcome of every failed
	// login: unknown email, wrong password, or an unreadable digest.
	ErrUnauthorizedCredentials = errors.New("credentials are not valid")
	ErrInvalidToken            = errors.New("invalid or expired session token")
	ErrEmptyPassword           = errors.New("password cannot be empty")
)
