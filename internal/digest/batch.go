package digest

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-summarizeme/internal/store"
)

// Reporter receives batch progress.
type Reporter interface {
	SetTotal(n int)
	Advance()
	Record(err error)
}

// BatchStats counts per-entity outcomes of a batch.
type BatchStats struct {
	Generated int
	Skipped   int
	Failed    int
}

// Batch summarizes ids one after another on behalf of collection.
// An empty ids summarizes every entity of the collection. Each entity's
// failure is reported to r and the batch moves on; only a store failure
// while resolving the batch or a cancelled context stops it.
func (p *Pipeline) Batch(ctx context.Context, r Reporter, collection string, ids []string, model string) (BatchStats, error) {
	var stats BatchStats

	key, err := p.store.CollectionKey(ctx, collection)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if len(ids) == 0 {
			return stats, err
		}
		key = collection
	case err != nil:
		return stats, err
	}

	if len(ids) == 0 {
		entities, err := p.store.CollectionEntities(ctx, collection, store.ListOptions{})
		if err != nil {
			return stats, err
		}
		for _, e := range entities {
			ids = append(ids, e.ID)
		}
	}

	r.SetTotal(len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, err := p.Summarize(ctx, id, model)
		if err == nil {
			_, err = p.store.LinkCollection(ctx, collection, key, id)
		}
		if err != nil {
			stats.Failed++
			p.logger.Warn("summary failed", "entity", id, "model", model, "error", err)
			r.Record(fmt.Errorf("%s: %w", id, err))
			r.Advance()
			continue
		}

		switch outcome {
		case Generated:
			stats.Generated++
		case Skipped:
			stats.Skipped++
		}
		r.Advance()
	}
	return stats, nil
}
