package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session core
var (
	// Adapter lifecycle errors
	ErrInitialization = errors.New("adapter initialization failed")
	ErrLogin          = errors.New("login failed")
	ErrLoginTimeout   = errors.New("login timed out")
	ErrLogout         = errors.New("logout failed")
	ErrSessionExpired = errors.New("session expired")
	ErrNotConnected   = errors.New("wallet not connected")

	// Login option errors
	ErrUnknownLoginMethod  = errors.New("unknown login method")
	ErrInvalidLoginOptions = errors.New("invalid login options")

	// Backend response categories
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrUnknown      = errors.New("unknown error")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrNoToken      = errors.New("no token")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Join returns an error that wraps both the sentinel kind and the underlying cause
// so errors.Is matches either.
func Join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
