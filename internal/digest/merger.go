// Package digest turns stored transcripts into summary documents.
//
// A Merger fans one generation call out per (chunk, variant) pair and
// folds the outputs back per variant in chunk order. A Pipeline wraps the
// merger with the idempotency guard, chunking and persistence, and Batch
// runs the pipeline over many entities with per-entity failure isolation.
package digest

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/prompt"
)

// DefaultParallel is the number of concurrent generation calls per merge.
// One call at a time reproduces a strictly sequential chunk-major order.
const DefaultParallel = 1

// Merger runs the fan-out/fan-in over one entity's chunks.
type Merger struct {
	gen      generate.Generator
	parallel int
}

// NewMerger creates a Merger. parallel < 1 uses DefaultParallel.
func NewMerger(gen generate.Generator, parallel int) *Merger {
	if parallel < 1 {
		parallel = DefaultParallel
	}
	return &Merger{gen: gen, parallel: parallel}
}

// Merge calls the generator once per (chunk, variant) and returns, per
// variant, the outputs joined by newline in chunk order and trimmed.
// The first failure cancels the remaining calls and is returned with the
// chunk index and variant attached.
func (m *Merger) Merge(ctx context.Context, model string, chunks []string, variants []prompt.Variant) (map[prompt.Variant]string, error) {
	// outputs[v][c] holds the output of variant v on chunk c.
	outputs := make([][]string, len(variants))
	for v := range outputs {
		outputs[v] = make([]string, len(chunks))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)

	for c, text := range chunks {
		for v, variant := range variants {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := m.gen.Generate(ctx, model, variant.Build(text))
				if err != nil {
					return fmt.Errorf("chunk %d/%d (%s): %w", c+1, len(chunks), variant, err)
				}
				outputs[v][c] = out
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[prompt.Variant]string, len(variants))
	for v, variant := range variants {
		merged[variant] = strings.TrimSpace(strings.Join(outputs[v], "\n"))
	}
	return merged, nil
}
