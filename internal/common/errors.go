package common

import "errors"

var (
	// Failure kinds, matchable with errors.Is against any *AuthFailure.
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("not found")
	ErrServer             = errors.New("server error")
	ErrNetwork            = errors.New("network error")
	ErrUnknown            = errors.New("unknown error")

	// Local storage errors.
	ErrCorruptCredential = errors.New("corrupt credential record")
	ErrEmptyToken        = errors.New("empty token")
)
