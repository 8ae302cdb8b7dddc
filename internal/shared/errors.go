package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTokenMissing occurs when no bearer token accompanies a request.
	ErrTokenMissing = errors.New("auth token missing")
	// ErrTokenUnknown occurs when the presented token resolves to no principal.
	ErrTokenUnknown = errors.New("auth token unknown")
)
