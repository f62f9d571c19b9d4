package auth

import "errors"

// AuthError is an authentication failure with a user-facing message.
// All of them map to HTTP 401 at the boundary.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Revoked and expired sessions fail with the same message on purpose:
// callers must not be able to tell which condition triggered.
var (
	ErrMissingToken = &AuthError{Message: "Missing access token"}
	ErrInvalidToken = &AuthError{Message: "Token is invalid"}
	ErrTokenExpired = &AuthError{Message: "Token has expired"}
	ErrInactiveUser = &AuthError{Message: "User account is inactive"}
	ErrSessionIdle  = &AuthError{Message: "Session expired due to inactivity."}
)

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
