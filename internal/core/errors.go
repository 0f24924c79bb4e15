package core

import "errors"

var (
	// ErrCallerUnavailable is returned for anonymous or empty caller ids
	ErrCallerUnavailable = errors.New("caller id unavailable")
	// ErrInvalidCallerID is returned when a caller id cannot be parsed
	ErrInvalidCallerID = errors.New("invalid caller id")
	// ErrCacheUnavailable wraps cache tier failures
	ErrCacheUnavailable = errors.New("cache tier unavailable")
	// ErrRemoteLookup wraps remote tier failures
	ErrRemoteLookup = errors.New("remote lookup failed")
	// ErrAccountCheck is returned when the startup partner check fails
	ErrAccountCheck = errors.New("tellows account check failed")
	// ErrProtocol is returned for malformed FastAGI requests
	ErrProtocol = errors.New("protocol error")
	// ErrConnectionTimeout is returned when a connection exceeds its deadline
	ErrConnectionTimeout = errors.New("connection timed out")
	// ErrHandlerPanic is reported when a connection handler panicked
	ErrHandlerPanic = errors.New("connection handler panicked")
)
