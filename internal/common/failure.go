package common

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an authentication operation did not succeed.
type FailureKind string

const (
	KindInvalidInput       FailureKind = "INVALID_INPUT"
	KindInvalidCredentials FailureKind = "INVALID_CREDENTIALS"
	KindSessionExpired     FailureKind = "SESSION_EXPIRED"
	KindInvalidToken       FailureKind = "INVALID_TOKEN"
	KindNotFound           FailureKind = "NOT_FOUND"
	KindServerError        FailureKind = "SERVER_ERROR"
	KindNetworkError       FailureKind = "NETWORK_ERROR"
	KindUnknownError       FailureKind = "UNKNOWN_ERROR"
)

var kindSentinels = map[FailureKind]error{
	KindInvalidInput:       ErrInvalidInput,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindSessionExpired:     ErrSessionExpired,
	KindInvalidToken:       ErrInvalidToken,
	KindNotFound:           ErrNotFound,
	KindServerError:        ErrServer,
	KindNetworkError:       ErrNetwork,
	KindUnknownError:       ErrUnknown,
}

var defaultMessages = map[FailureKind]string{
	KindInvalidInput:       "please fill in all required fields correctly",
	KindInvalidCredentials: "invalid username or password",
	KindSessionExpired:     "your session has expired, please log in again",
	KindInvalidToken:       "your session is no longer valid, please log in again",
	KindNotFound:           "the requested resource was not found",
	KindServerError:        "the server failed to process the request, try again later",
	KindNetworkError:       "cannot reach the server, check your connection",
	KindUnknownError:       "unexpected error",
}

// Sentinel returns the sentinel error matching k.
func (k FailureKind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return ErrUnknown
}

// DefinitelyInvalid reports whether the kind proves the stored credential is
// no longer accepted by the server. Only these kinds may clear a session that
// the device still considers valid.
func (k FailureKind) DefinitelyInvalid() bool {
	return k == KindInvalidToken || k == KindSessionExpired
}

// DefaultMessage is the user-visible text shown when the server did not
// provide one.
func DefaultMessage(k FailureKind) string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return defaultMessages[KindUnknownError]
}

// AuthFailure is the classified outcome of a failed authentication operation.
// Status holds the raw HTTP (or mapped gRPC) status when one was received,
// zero for transport-level failures.
type AuthFailure struct {
	Kind    FailureKind
	Message string
	Status  int
	Err     error
}

// NewFailure builds an AuthFailure; an empty message falls back to the
// kind's default message.
func NewFailure(kind FailureKind, message string) *AuthFailure {
	if message == "" {
		message = DefaultMessage(kind)
	}
	return &AuthFailure{Kind: kind, Message: message}
}

// WithStatus records the raw status for diagnostics.
func (f *AuthFailure) WithStatus(status int) *AuthFailure {
	f.Status = status
	return f
}

// WithCause attaches the underlying error.
func (f *AuthFailure) WithCause(err error) *AuthFailure {
	f.Err = err
	return f
}

func (f *AuthFailure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *AuthFailure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel of the failure's kind as well as another
// *AuthFailure of the same kind.
func (f *AuthFailure) Is(target error) bool {
	var other *AuthFailure
	if errors.As(target, &other) {
		return other.Kind == f.Kind
	}
	return target == f.Kind.Sentinel()
}

// AsFailure converts err into an *AuthFailure, wrapping foreign errors as
// KindUnknownError.
func AsFailure(err error) *AuthFailure {
	if err == nil {
		return nil
	}
	var f *AuthFailure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(KindUnknownError, err.Error()).WithCause(err)
}
