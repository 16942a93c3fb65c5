package queue

import "errors"

// Admission errors. Nothing is queued when Submit returns one of these.
var (
	ErrHalted            = errors.New("queue: actor is halted")
	ErrInsufficientFunds = errors.New("queue: not enough money to queue command")
	ErrQuotaExceeded     = errors.New("queue: too many commands queued")
	ErrQueueFull         = errors.New("queue: no free handle")
)

// Errors from administrative lookups by handle.
var (
	ErrInvalidHandle = errors.New("queue: not a valid handle")
	ErrNoSuchHandle  = errors.New("queue: handle is not associated with an active entry")
	ErrAlreadyHalted = errors.New("queue: entry has already been halted")
	ErrNotWaiting    = errors.New("queue: entry is not waiting")
	ErrNoTimeout     = errors.New("queue: semaphore wait has no timeout")
)
