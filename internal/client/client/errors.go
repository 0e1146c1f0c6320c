package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("operator role required")
	ErrInvalid       = errors.New("invalid request")
	ErrAlreadyExists = errors.New("already exists")
	ErrBusy          = errors.New("pass already running")
)
