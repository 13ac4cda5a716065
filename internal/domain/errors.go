package domain

import "errors"

// Account validation errors
var (
	ErrInvalidRole = errors.New("invalid role")
)
