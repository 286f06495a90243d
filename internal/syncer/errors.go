package syncer

import "errors"

// ErrRootMissing indicates the artifact root is absent or unreadable.
// It fails the whole run.
var ErrRootMissing = errors.New("artifact root unavailable")

// ErrEntityMissing indicates a derived document names an entity that has
// no row. The document is skipped.
var ErrEntityMissing = errors.New("entity not synced")
