// Package errors holds the sentinel error kinds shared across awsom packages.
// Callers wrap them with fmt.Errorf and test with errors.Is.
package errors

import "errors"

var (
	// ErrProvider covers remote API failures and malformed provider responses.
	ErrProvider = errors.New("identity provider error")

	// ErrAuthorizationPending is absorbed by the poll loop and never returned to callers.
	ErrAuthorizationPending = errors.New("authorization pending")

	ErrAuthorizationExpired = errors.New("device authorization expired")
	ErrTokenExpired         = errors.New("access token expired")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrConfig        = errors.New("configuration file error")
	ErrCache         = errors.New("cache error")

	ErrNoSessionFound      = errors.New("no cached session found")
	ErrAccountRoleNotFound = errors.New("account/role not found")
	ErrProfileNotFound     = errors.New("profile not found")

	// ErrUserManagedCollision means the target name lives in the user-managed region.
	ErrUserManagedCollision = errors.New("profile is user-managed")

	// ErrBrowserLaunchFailed is logged, never fatal.
	ErrBrowserLaunchFailed = errors.New("failed to launch browser")
)
