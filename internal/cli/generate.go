package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/digest"
	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// generateOptions holds validated options for the generate command.
type generateOptions struct {
	collection string
	ids        []string
	model      string
	provider   Provider
	parallel   int
	tokens     bool
}

// GenerateCmd creates the generate command (summarize a collection's entities).
func GenerateCmd(env *Env) *cobra.Command {
	var (
		model    string
		provider string
		parallel int
		tokens   bool
	)

	cmd := &cobra.Command{
		Use:   "generate <collection> [entity-id...]",
		Short: "Summarize entities of a collection",
		Long: `Generate the four summary sections (concise, key topics, takeaways,
comprehensive) for entities of a collection.

Without entity IDs every entity of the collection is summarized.
Entities that already have a summary from the same model are skipped
without calling the model. Long transcripts are split at sentence
boundaries and each part is summarized separately.`,
		Example: `  summarizeme generate Talks
  summarizeme generate Talks abc123 def456 --provider ollama --model llama3.2
  summarizeme generate Talks --parallel 4 --tokens`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseGenerateOptions(args, model, provider, parallel, tokens)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default: model from config)")
	cmd.Flags().StringVar(&provider, "provider", "", "Generation backend: openai, ollama (default: provider from config)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent model calls per entity (default: parallel from config)")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "Measure chunk size in model tokens instead of words")

	return cmd
}

// parseGenerateOptions validates and parses CLI inputs into generateOptions.
func parseGenerateOptions(args []string, model, provider string, parallel int, tokens bool) (generateOptions, error) {
	var p Provider
	if provider != "" {
		var err error
		if p, err = ParseProvider(provider); err != nil {
			return generateOptions{}, err
		}
	}
	if parallel < 0 {
		return generateOptions{}, fmt.Errorf("parallel must be positive, got %d: %w", parallel, ErrInvalidValue)
	}
	return generateOptions{
		collection: args[0],
		ids:        args[1:],
		model:      model,
		provider:   p,
		parallel:   parallel,
		tokens:     tokens,
	}, nil
}

func runGenerate(ctx context.Context, env *Env, opts generateOptions) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		provider := opts.provider.OrDefault(rt.cfg)
		model := opts.model
		if model == "" {
			model = rt.cfg.Model
		}
		parallel := opts.parallel
		if parallel == 0 {
			parallel = rt.cfg.Parallel
		}

		gen, err := env.GeneratorFactory.NewGenerator(provider, rt.cfg)
		if err != nil {
			return err
		}

		var est estimate.Estimator = estimate.Words{}
		if opts.tokens {
			est = estimate.ForModel(model, rt.logger)
		}
		pipeline := digest.NewPipeline(rt.store, gen,
			digest.WithChunker(chunk.New(est, rt.cfg.ChunkSize)),
			digest.WithParallel(parallel),
			digest.WithLogger(rt.logger),
		)

		fmt.Fprintf(env.Stderr, "Summarizing %s with %s (provider: %s)...\n", opts.collection, model, provider)
		return rt.runTask(ctx, env, tasks.Job{
			Kind:  tasks.KindGenerate,
			Scope: opts.collection + "/" + model,
			Total: len(opts.ids),
			Fn: func(ctx context.Context, p *tasks.Progress) error {
				stats, err := pipeline.Batch(ctx, p, opts.collection, opts.ids, model)
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Stderr, "  %d generated, %d skipped, %d failed\n", stats.Generated, stats.Skipped, stats.Failed)
				return nil
			},
		})
	})
}
