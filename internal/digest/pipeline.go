package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/prompt"
	"github.com/alnah/go-summarizeme/internal/store"
)

// Outcome reports what Summarize did for one entity.
type Outcome int

const (
	// Generated means a new summary document was written.
	Generated Outcome = iota + 1
	// Skipped means a summary already existed for the (entity, generator) pair.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Pipeline produces one summary document per (entity, generator).
type Pipeline struct {
	store    *store.Store
	merger   *Merger
	chunker  *chunk.Chunker
	variants []prompt.Variant
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunker sets the chunker used to split transcripts.
func WithChunker(c *chunk.Chunker) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.chunker = c
		}
	}
}

// WithParallel sets the number of concurrent generation calls per entity.
func WithParallel(n int) Option {
	return func(p *Pipeline) {
		p.merger.parallel = max(n, 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a Pipeline that generates with gen and persists to s.
func NewPipeline(s *store.Store, gen generate.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    s,
		merger:   NewMerger(gen, DefaultParallel),
		chunker:  chunk.New(nil, chunk.DefaultMaxSize),
		variants: prompt.Variants(),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "digest")
	return p
}

// ShouldGenerate reports whether no document exists yet for the triple.
// It is a read-before-write check; the unique index on documents settles races.
func ShouldGenerate(ctx context.Context, q *store.Queries, entityID, kind, generator string) (bool, error) {
	exists, err := q.DocumentExists(ctx, entityID, kind, generator)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Summarize generates and stores the summary of entityID with model.
// Nothing is written unless every (chunk, variant) call succeeded.
func (p *Pipeline) Summarize(ctx context.Context, entityID, model string) (Outcome, error) {
	ok, err := ShouldGenerate(ctx, p.store.Queries, entityID, store.KindSummary, model)
	if err != nil {
		return 0, err
	}
	if !ok {
		p.logger.Debug("summary exists", "entity", entityID, "model", model)
		return Skipped, nil
	}

	e, err := p.store.GetEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	if e.TranscriptPlain == "" {
		return 0, ErrNoTranscript
	}

	chunks := p.chunker.Chunk(e.TranscriptPlain)
	p.logger.Info("summarizing", "entity", entityID, "model", model, "chunks", len(chunks))

	merged, err := p.merger.Merge(ctx, model, chunks, p.variants)
	if err != nil {
		return 0, err
	}

	doc := store.Document{
		EntityID:      entityID,
		Kind:          store.KindSummary,
		Generator:     model,
		Concise:       merged[prompt.ConciseVariant],
		KeyTopics:     merged[prompt.KeyTopicsVariant],
		Takeaways:     merged[prompt.TakeawaysVariant],
		Comprehensive: merged[prompt.ComprehensiveVariant],
		GeneratedAt:   p.now().UTC(),
	}
	doc.Size = len(doc.Concise) + len(doc.KeyTopics) + len(doc.Takeaways) + len(doc.Comprehensive)

	if _, err := p.store.InsertDocument(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			p.logger.Debug("summary written concurrently", "entity", entityID, "model", model)
			return Skipped, nil
		}
		return 0, fmt.Errorf("save summary: %w", err)
	}
	return Generated, nil
}
