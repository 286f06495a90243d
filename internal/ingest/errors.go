package ingest

import "errors"

// ErrTranscriptUnavailable indicates no captions could be obtained for an entity.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")
