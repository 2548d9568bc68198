package domain

import "errors"

// Sentinel errors used throughout the application. Argument errors are
// rejected before any store access; ErrNumberBlacklisted is the one failure
// that must reach the caller-facing session.
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingUniqueID   = errors.New("no unique id set")
	ErrMissingQueue      = errors.New("no queue/location set")
	ErrMissingNumber     = errors.New("no callback number set")
	ErrBadLocation       = errors.New("location is not technology/agent")
	ErrNumberBlacklisted = errors.New("callback number is blacklisted")
)
