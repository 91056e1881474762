package profile

import "errors"

var (
	ErrProfileNotFound = errors.New("profile: not found")
	ErrInvalidProfile  = errors.New("profile: invalid profile data")
	ErrInvalidRange    = errors.New("profile: invalid layer range")
)
