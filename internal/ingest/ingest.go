// Package ingest fetches the transcripts of a collection's entities from a
// source and records them in the store and the artifact tree.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alnah/go-summarizeme/internal/caption"
	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/store"
	"github.com/alnah/go-summarizeme/internal/syncer"
)

// Listing is one entity announced by a collection source.
type Listing struct {
	ID         string
	Title      string
	UploadDate string
}

// Lister enumerates the entities behind an external collection key.
type Lister interface {
	ListCollectionEntities(ctx context.Context, key string) ([]Listing, error)
}

// Fetcher retrieves the captions of one entity.
// Returns ErrTranscriptUnavailable when none exist.
type Fetcher interface {
	FetchTranscript(ctx context.Context, entityID string) ([]caption.Entry, error)
}

// Reporter receives ingest progress.
type Reporter interface {
	SetTotal(n int)
	Advance()
	Record(err error)
}

// Stats counts per-entity outcomes of an ingest run.
type Stats struct {
	Listed  int
	Fetched int
	Present int
	Failed  int
}

// Ingester pulls transcripts into the store.
type Ingester struct {
	store   *store.Store
	lister  Lister
	fetcher Fetcher
	root    string
	est     estimate.Estimator
	logger  *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithArtifactRoot also writes each fetched transcript as
// <root>/<collection>/transcripts/<id>.json.
func WithArtifactRoot(root string) Option {
	return func(in *Ingester) {
		in.root = root
	}
}

// WithEstimator sets the size estimator.
func WithEstimator(est estimate.Estimator) Option {
	return func(in *Ingester) {
		if est != nil {
			in.est = est
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an Ingester.
func New(s *store.Store, lister Lister, fetcher Fetcher, opts ...Option) *Ingester {
	in := &Ingester{
		store:   s,
		lister:  lister,
		fetcher: fetcher,
		est:     estimate.Words{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.With("component", "ingest")
	return in
}

// Run ingests every entity listed for key. The collection keeps the name
// it already has for key, or takes key as its name. Entities that already
// carry a transcript are linked but not fetched again. Per-entity failures
// are reported to r; listing and store failures abort the run.
func (in *Ingester) Run(ctx context.Context, r Reporter, key string) (Stats, error) {
	var stats Stats

	if err := caption.CheckName(key); err != nil {
		return stats, err
	}
	name, err := in.store.NameForKey(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		name = key
	case err != nil:
		return stats, err
	}

	listings, err := in.lister.ListCollectionEntities(ctx, key)
	if err != nil {
		return stats, fmt.Errorf("list %s: %w", key, err)
	}
	stats.Listed = len(listings)
	r.SetTotal(len(listings))
	in.logger.Info("ingesting", "collection", name, "key", key, "entities", len(listings))

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		fetched, err := in.ingestOne(ctx, name, key, l)
		switch {
		case err != nil:
			stats.Failed++
			in.logger.Warn("ingest failed", "entity", l.ID, "error", err)
			r.Record(fmt.Errorf("%s: %w", l.ID, err))
		case fetched:
			stats.Fetched++
		default:
			stats.Present++
		}
		r.Advance()
	}
	return stats, nil
}

func (in *Ingester) ingestOne(ctx context.Context, name, key string, l Listing) (bool, error) {
	if err := caption.CheckName(l.ID); err != nil {
		return false, err
	}
	has, err := in.store.HasTranscript(ctx, l.ID)
	if err != nil {
		return false, err
	}
	if has {
		_, err := in.store.LinkCollection(ctx, name, key, l.ID)
		return false, err
	}

	entries, err := in.fetcher.FetchTranscript(ctx, l.ID)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, ErrTranscriptUnavailable
	}

	title, date := l.Title, l.UploadDate
	if title == "" {
		title = caption.DefaultTitle
	}
	if date == "" {
		date = caption.UnknownDate
	}

	if in.root != "" {
		a := caption.Artifact{ID: l.ID, Title: title, UploadDate: date, Transcript: entries}
		if err := writeArtifact(filepath.Join(in.root, name, syncer.TranscriptsDir), a); err != nil {
			return false, err
		}
	}

	stamped, plain := caption.Normalize(entries)
	e := store.Entity{
		ID:                    l.ID,
		Title:                 title,
		UploadDate:            date,
		TranscriptTimestamped: stamped,
		TranscriptPlain:       plain,
		SizeTimestamped:       in.est.Estimate(stamped),
		SizePlain:             in.est.Estimate(plain),
	}
	err = in.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.UpsertEntity(ctx, e); err != nil {
			return err
		}
		_, err := q.LinkCollection(ctx, name, key, e.ID)
		return err
	})
	return err == nil, err
}

// writeArtifact writes a atomically into dir.
func writeArtifact(dir string, a caption.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+a.ID+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := a.Encode(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, a.ID+".json"))
}
