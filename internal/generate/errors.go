package generate

import "errors"

// ErrGeneration wraps every failure returned by a Generator, after retries.
var ErrGeneration = errors.New("generation failed")

// ErrEmptyAPIKey indicates that the API key was not provided.
var ErrEmptyAPIKey = errors.New("API key is required")

// ErrUnknownProvider indicates an unsupported backend name.
var ErrUnknownProvider = errors.New("unknown provider")
