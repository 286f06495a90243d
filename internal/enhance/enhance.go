// Package enhance rewrites raw transcripts into readable text, gating each
// rewrite on a score from an evaluator model.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-summarizeme/internal/caption"
	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/prompt"
	"github.com/alnah/go-summarizeme/internal/syncer"
)

// Defaults for the quality gate.
const (
	DefaultMaxSize   = 2000
	DefaultAttempts  = 3
	DefaultThreshold = 3
	tokenModel       = "gpt-3.5-turbo"
)

// Enhancer rewrites transcripts chunk by chunk.
type Enhancer struct {
	gen       generate.Generator
	chunker   *chunk.Chunker
	attempts  int
	threshold int
	evaluator string
	logger    *slog.Logger
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithChunker replaces the token-based chunker.
func WithChunker(c *chunk.Chunker) Option {
	return func(e *Enhancer) {
		if c != nil {
			e.chunker = c
		}
	}
}

// WithAttempts sets the maximum rewrites per chunk.
func WithAttempts(n int) Option {
	return func(e *Enhancer) {
		e.attempts = max(n, 1)
	}
}

// WithEvaluator scores rewrites with model instead of the rewriting model.
func WithEvaluator(model string) Option {
	return func(e *Enhancer) {
		e.evaluator = model
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enhancer) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Enhancer.
func New(gen generate.Generator, opts ...Option) *Enhancer {
	e := &Enhancer{
		gen:       gen,
		attempts:  DefaultAttempts,
		threshold: DefaultThreshold,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "enhance")
	if e.chunker == nil {
		e.chunker = chunk.New(estimate.ForModel(tokenModel, e.logger), DefaultMaxSize)
	}
	return e
}

// Enhance rewrites text with model. Each chunk is rewritten until the
// evaluator scores it above the threshold; after the last attempt the
// best-scoring rewrite is kept. Chunks are joined by a blank line.
func (e *Enhancer) Enhance(ctx context.Context, model, text string) (string, error) {
	chunks := e.chunker.Chunk(text)
	out := make([]string, 0, len(chunks))
	for i, c := range chunks {
		best, err := e.enhanceChunk(ctx, model, c)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out = append(out, best)
	}
	return strings.Join(out, "\n\n"), nil
}

func (e *Enhancer) enhanceChunk(ctx context.Context, model, raw string) (string, error) {
	evaluator := e.evaluator
	if evaluator == "" {
		evaluator = model
	}

	var (
		best      string
		bestScore = -1
	)
	for attempt := 1; attempt <= e.attempts; attempt++ {
		candidate, err := e.gen.Generate(ctx, model, prompt.Enhance(raw))
		if err != nil {
			return "", err
		}

		score := 0
		answer, err := e.gen.Generate(ctx, evaluator, prompt.Evaluate(raw, candidate))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			e.logger.Warn("evaluation failed", "attempt", attempt, "error", err)
		} else {
			score = ParseScore(answer)
		}
		e.logger.Debug("rewrite scored", "attempt", attempt, "score", score)

		if score > bestScore {
			best, bestScore = candidate, score
		}
		if score > e.threshold {
			return candidate, nil
		}
	}
	e.logger.Info("keeping best rewrite", "score", bestScore, "attempts", e.attempts)
	return best, nil
}

// ParseScore reads the leading 1-5 digit of an evaluator answer.
// Anything else scores 0.
func ParseScore(answer string) int {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0
	}
	if c := answer[0]; c >= '1' && c <= '5' {
		return int(c - '0')
	}
	return 0
}

// Save writes text where the sync engine picks it up as the enhanced
// transcript document of id, and returns the file path. collection and id
// must be single path elements (caption.ErrUnsafeName).
func Save(root, collection, model, id, text string) (string, error) {
	for _, name := range []string{collection, id} {
		if err := caption.CheckName(name); err != nil {
			return "", err
		}
	}
	dir := filepath.Join(root, collection, syncer.EnhancedKind(model))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, id+".md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
