package domain

import "errors"

var (
	// ErrInternalServerError is thrown when an internal server error occurs
	ErrInternalServerError = errors.New("internal server error")

	// ErrNotFound is thrown when a requested todo is not in the owner's list
	ErrNotFound = errors.New("todo not found")

	// ErrBadParamInput is thrown when request parameters are invalid
	ErrBadParamInput = errors.New("invalid parameters")

	// ErrBlankTitle is returned when a todo title is empty after trimming
	ErrBlankTitle = errors.New("title must not be blank")

	// ErrUnauthenticated is returned when no owner identity is available
	ErrUnauthenticated = errors.New("no authenticated owner")

	// ErrMissingID is returned when a write targets a todo without an identifier
	ErrMissingID = errors.New("todo has no identifier")

	// ErrPersistence wraps failures reported by the persistence collaborator
	ErrPersistence = errors.New("persistence failure")

	// ErrQueueFull is returned when the worker pool cannot accept a mutation
	ErrQueueFull = errors.New("mutation queue is full")
)
