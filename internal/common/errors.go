// Package common defines shared constants and sentinel errors used across
// the server, storage adapters and the operator CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrMissingColumn   = errors.New("required column missing")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Gate decisions surfaced as errors to callers that need them.
	ErrUnknownUnit      = errors.New("unknown unit")
	ErrInvalidUnitKey   = errors.New("invalid unit key")
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrNoContainer is returned when an admitted member has no container yet.
	ErrNoContainer = errors.New("container not provisioned")

	// Storage errors.
	ErrIncompatibleDomain = errors.New("incompatible domain")
	ErrInvalidObjectID    = errors.New("invalid object id")

	// ErrLockTimeout is returned when the exclusive registry lock could not
	// be acquired within its bounded wait. The triggering event is dropped.
	ErrLockTimeout = errors.New("lock wait timeout")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
