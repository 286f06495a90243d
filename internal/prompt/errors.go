package prompt

import "errors"

// ErrUnknown indicates an invalid variant name was specified.
var ErrUnknown = errors.New("unknown prompt variant")
