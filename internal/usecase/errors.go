package usecase

import "errors"

var (
	// ErrNotFound means the provider has no data for the request.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means an optional backend is not configured.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrConflict means equal work is already queued.
	ErrConflict = errors.New("already queued")
)
