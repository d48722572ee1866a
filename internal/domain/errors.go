package domain

import "errors"

// Error kinds surfaced by the store and the lifecycle controller. Callers
// match them with errors.Is; adapters wrap them with call-site context.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrMalformedDocument = errors.New("malformed review document")
	ErrStartTimeout      = errors.New("server start timed out")
	ErrStoreUnavailable  = errors.New("store unavailable")
)
