package app

import (
	"errors"

	"docuchat/internal/ai"
)

// Error taxonomy of the core API. Every error returned by the services wraps
// exactly one of these, so handlers can map them to HTTP statuses with
// errors.Is while the wrapped detail says which chunk, batch or session
// failed.
var (
	// ErrValidation covers empty or unsegmentable input and vector
	// dimension mismatches. Never retried.
	ErrValidation = errors.New("invalid input")

	// ErrExternalService is shared with the ai package: embedding retries
	// exhausted, malformed payloads, or a failed generation call.
	ErrExternalService = ai.ErrExternalService

	// ErrNotFound marks an unknown session id.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks serialization or persistence-backend failures. It
	// always aborts the enclosing operation.
	ErrStorage = errors.New("storage failure")
)
