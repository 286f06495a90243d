package caption

import "errors"

// ErrMissingID indicates a transcript artifact has no entity identifier.
var ErrMissingID = errors.New("transcript artifact has no id")

// ErrMalformedSRT indicates an SRT block could not be parsed.
var ErrMalformedSRT = errors.New("malformed SRT block")

// ErrUnsafeName indicates an id or collection name that cannot name a
// single file or directory in the artifact tree.
var ErrUnsafeName = errors.New("unsafe artifact name")
