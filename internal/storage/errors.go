package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert price points
	// for a (pool_id, interval, timestamp) that already exists. Cached
	// series are append-only; re-fetches must query the gap, not rewrite.
	ErrDuplicateKey = errors.New("duplicate key: cached series are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
