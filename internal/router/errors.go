package router

import "errors"

var (
	// ErrClassifierUnavailable means the upstream text classifier failed. It
	// is propagated to the caller; there is no local recovery.
	ErrClassifierUnavailable = errors.New("router: classifier unavailable")

	// ErrMissingHandler is returned by New when a handler slot is empty.
	ErrMissingHandler = errors.New("router: missing handler")
)
