package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrStoreUnavailable   = errors.New("job store unavailable")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrGenerationTimedOut = errors.New("generation timed out")
)
