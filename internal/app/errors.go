package service

import "errors"

// Sentinel error kinds for service level validation.
var (
	ErrInvalidTeam      = errors.New("invalid team")
	ErrInvalidThreshold = errors.New("threshold outside scoring range")
)
