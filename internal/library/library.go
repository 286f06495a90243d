// Package library manages named collections: listing, renaming and
// deleting them with cascading cleanup of entities nothing references.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/alnah/go-summarizeme/internal/store"
)

// disallowed matches every character outside the collection name policy:
// letters, digits, underscore, hyphen and whitespace.
var disallowed = regexp.MustCompile(`[^a-zA-Z0-9_\-\s]`)

// Sanitize strips characters outside the name policy and trims spaces.
func Sanitize(name string) string {
	return strings.TrimSpace(disallowed.ReplaceAllString(name, ""))
}

// Library operates on collections in the store.
type Library struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a Library.
func New(s *store.Store, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Library{store: s, logger: logger.With("component", "library")}
}

// Rename moves every row named oldName to the sanitized newName in one
// transaction and returns the name applied.
func (l *Library) Rename(ctx context.Context, oldName, newName string) (string, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return "", fmt.Errorf("old and new names are required: %w", ErrValidation)
	}
	safe := Sanitize(newName)
	if safe == "" {
		return "", fmt.Errorf("name %q has no allowed characters: %w", newName, ErrValidation)
	}

	var rows int64
	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		exists, err := q.CollectionExists(ctx, oldName)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("collection %q: %w", oldName, store.ErrNotFound)
		}
		taken, err := q.CollectionExists(ctx, safe)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("collection %q: %w", safe, ErrConflict)
		}
		rows, err = q.RenameCollection(ctx, oldName, safe)
		return err
	})
	if err != nil {
		return "", err
	}

	l.logger.Info("collection renamed", "old", oldName, "new", safe, "rows", rows)
	return safe, nil
}

// DeleteResult reports what a deletion removed.
type DeleteResult struct {
	Links    int
	Entities []string
}

// Delete removes every row named name, then deletes each formerly linked
// entity that no remaining row references, with its documents. The whole
// operation is one transaction.
func (l *Library) Delete(ctx context.Context, name string) (DeleteResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DeleteResult{}, fmt.Errorf("collection name is empty: %w", ErrValidation)
	}

	var res DeleteResult
	err := l.store.WithTx(ctx, func(q *store.Queries) error {
		ids, err := q.DeleteCollectionRows(ctx, name)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("collection %q: %w", name, store.ErrNotFound)
		}
		res.Links = len(ids)

		// References are checked only after every row of the collection is gone.
		for _, id := range ids {
			refs, err := q.CollectionRefs(ctx, id)
			if err != nil {
				return err
			}
			if refs > 0 {
				continue
			}
			if err := q.DeleteEntity(ctx, id); err != nil {
				return err
			}
			res.Entities = append(res.Entities, id)
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	l.logger.Info("collection deleted", "name", name, "links", res.Links, "entities_removed", len(res.Entities))
	return res, nil
}

// List returns every collection with its entity count.
func (l *Library) List(ctx context.Context) ([]store.CollectionSummary, error) {
	return l.store.ListCollections(ctx)
}

// Entities lists the entities of one collection.
// Returns store.ErrNotFound when the collection is unknown.
func (l *Library) Entities(ctx context.Context, name string, opts store.ListOptions) ([]store.Entity, error) {
	exists, err := l.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", name, store.ErrNotFound)
	}
	switch opts.Sort {
	case "", "title", "date":
	default:
		return nil, fmt.Errorf("unknown sort %q: %w", opts.Sort, ErrValidation)
	}
	return l.store.CollectionEntities(ctx, name, opts)
}
