package history

import "errors"

// Sentinel error kinds for history queries.
var (
	ErrInvalidFilter     = errors.New("invalid history filter")
	ErrInvalidComparison = errors.New("invalid comparison")
)
