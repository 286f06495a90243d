package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidValue indicates a flag value is out of range.
	ErrInvalidValue = errors.New("invalid value")

	// ErrRunFailed indicates a background run ended in the failed state.
	ErrRunFailed = errors.New("run failed")
)
