package errors

import "github.com/pkg/errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNothingPending      = errors.New("all pending")
	ErrMalformedInput      = errors.New("malformed input")
	ErrEmptyBatch          = errors.New("empty bot_info")
	ErrNotInstantiated     = errors.New("relay state not found")
	ErrAlreadyInstantiated = errors.New("relay state already exists")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrDuplicateFunction   = errors.New("function already registered")
	ErrSelectorCollision   = errors.New("function selector collision")
	ErrInvalidMessage      = errors.New("invalid execute message")
	ErrDatabaseConnect     = errors.New("failed to connect to database")
)
