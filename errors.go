package sessioncore

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when no usable credential accompanies a request.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidCredentials is the uniform login failure for unknown accounts,
// wrong passwords and inactive accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserNotFound is returned by [UserProvider] implementations for unknown accounts.
var ErrUserNotFound = errors.New("user not found")

// ErrLoginRateLimited is returned when the login window budget is spent.
var ErrLoginRateLimited = errors.New("login rate limited")

// ErrRefreshRateLimited is returned when a family's refresh budget is spent.
var ErrRefreshRateLimited = errors.New("refresh rate limited")

// ErrInvalidToken is returned for any access credential that fails decoding.
var ErrInvalidToken = errors.New("invalid token")

// ErrRefreshInvalid is returned for refresh credentials that cannot be rotated.
var ErrRefreshInvalid = errors.New("invalid refresh token")

// ErrRefreshReuse is wrapped by [ReplayError] when a consumed refresh
// credential is presented again.
var ErrRefreshReuse = errors.New("refresh token reuse detected")

// ErrPermissionDenied is returned when a principal lacks every required role.
var ErrPermissionDenied = errors.New("permission denied")

// ErrStoreUnavailable is returned when the session store cannot be reached.
// It is a transient condition, never an authentication failure.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrEngineNotReady is returned by a zero or partially built [Engine].
var ErrEngineNotReady = errors.New("engine not initialized")

// ReplayError reports reuse of a consumed refresh credential. It is distinct
// from [ErrRefreshInvalid] so callers can raise a security alert.
type ReplayError struct {
	Subject string
	Family  string
	Revoked int
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("%s: subject %s family %s", ErrRefreshReuse, e.Subject, e.Family)
}

func (e *ReplayError) Unwrap() error {
	return ErrRefreshReuse
}
