package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps every failure of the underlying storage.
	ErrPersistence = errors.New("persistence failure")
)

// Persistence wraps err as an ErrPersistence for op.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
