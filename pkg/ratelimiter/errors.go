package ratelimiter

import "errors"

var (
	// ErrUnknownKind indicates a caller asked the registry for a limiter kind
	// that was never registered via Register or the default set.
	ErrUnknownKind = errors.New("ratelimiter: unknown limiter kind")

	// ErrClosed indicates Acquire was called after Close.
	ErrClosed = errors.New("ratelimiter: limiter closed")
)
