package domain

import (
	"errors"
)

// Core error taxonomy. These are the only error values the core surfaces to
// the boundary; the HTTP layer maps them onto response envelopes.
var (
	ErrNotFound          = errors.New("job not found")
	ErrDuplicateID       = errors.New("duplicate job id")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCancelled         = errors.New("job cancelled")
	ErrPoolExhausted     = errors.New("worker pool exhausted")
	ErrStopped           = errors.New("component stopped")
)
