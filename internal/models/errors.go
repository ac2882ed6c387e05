package models

import "errors"

// Recoverable failures. Each one ends in a clarifying reply, never in an
// aborted conversation.
var (
	ErrIncompleteProfile     = errors.New("incomplete profile")
	ErrAmbiguousMessage      = errors.New("ambiguous message")
	ErrEstimationUnavailable = errors.New("estimation unavailable")
	ErrOutOfBoundsEstimate   = errors.New("estimate out of bounds")
	ErrNotFound              = errors.New("not found")
)
