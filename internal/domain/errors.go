package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidCursor  = errors.New("invalid pagination token")
	ErrMissingMessage = errors.New("missing required field: contact_message")
)
