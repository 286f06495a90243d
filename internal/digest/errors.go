package digest

import "errors"

// ErrNoTranscript indicates the entity has no plain transcript to summarize.
var ErrNoTranscript = errors.New("entity has no transcript")
