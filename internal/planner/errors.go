package planner

import "errors"

// Turn failure kinds. Every failure is local to a single turn and surfaced to
// the caller; nothing is retried.
var (
	// ErrEmptySession indicates a missing or blank session key.
	ErrEmptySession = errors.New("session key required")

	// ErrEmptyMessage indicates an empty or whitespace-only message.
	ErrEmptyMessage = errors.New("message required")

	// ErrGeneration indicates the engine invocation failed.
	ErrGeneration = errors.New("generation failed")

	// ErrGenerationTimeout indicates the engine did not answer within the
	// configured deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrStorage indicates loading or persisting session memory failed.
	ErrStorage = errors.New("storage failure")
)
