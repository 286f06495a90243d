package library

import "errors"

// ErrValidation indicates malformed input, such as an empty name.
var ErrValidation = errors.New("invalid input")

// ErrConflict indicates the requested name is already in use.
var ErrConflict = errors.New("name already in use")
