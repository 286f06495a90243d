package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/digest"
	"github.com/alnah/go-summarizeme/internal/enhance"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// enhanceOptions holds validated options for the enhance command.
type enhanceOptions struct {
	collection string
	id         string
	model      string
	evaluator  string
	provider   Provider
	attempts   int
}

// EnhanceCmd creates the enhance command (rewrite a transcript as readable text).
func EnhanceCmd(env *Env) *cobra.Command {
	var (
		model     string
		evaluator string
		provider  string
		attempts  int
	)

	cmd := &cobra.Command{
		Use:   "enhance <collection> <entity-id>",
		Short: "Rewrite a transcript as readable text",
		Long: `Rewrite the plain transcript of an entity as readable prose.

Each part of the transcript is rewritten, then scored from 1 to 5 by an
evaluator model. A rewrite scoring above 3 is accepted; otherwise the
part is rewritten again, up to --attempts times, and the best rewrite is
kept. The result is written under the collection's
enhanced_<model>_transcript directory and recorded by the next sync.`,
		Example: `  summarizeme enhance Talks abc123
  summarizeme enhance Talks abc123 --provider ollama --model llama3.2 --evaluator llama3.1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseEnhanceOptions(args, model, evaluator, provider, attempts)
			if err != nil {
				return err
			}
			return runEnhance(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Rewriting model (default: model from config)")
	cmd.Flags().StringVar(&evaluator, "evaluator", "", "Scoring model (default: the rewriting model)")
	cmd.Flags().StringVar(&provider, "provider", "", "Generation backend: openai, ollama (default: provider from config)")
	cmd.Flags().IntVar(&attempts, "attempts", enhance.DefaultAttempts, "Rewrites per part before keeping the best")

	return cmd
}

// parseEnhanceOptions validates and parses CLI inputs into enhanceOptions.
func parseEnhanceOptions(args []string, model, evaluator, provider string, attempts int) (enhanceOptions, error) {
	var p Provider
	if provider != "" {
		var err error
		if p, err = ParseProvider(provider); err != nil {
			return enhanceOptions{}, err
		}
	}
	if attempts < 1 {
		return enhanceOptions{}, fmt.Errorf("attempts must be at least 1, got %d: %w", attempts, ErrInvalidValue)
	}
	return enhanceOptions{
		collection: args[0],
		id:         args[1],
		model:      model,
		evaluator:  evaluator,
		provider:   p,
		attempts:   attempts,
	}, nil
}

func runEnhance(ctx context.Context, env *Env, opts enhanceOptions) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		model := opts.model
		if model == "" {
			model = rt.cfg.Model
		}

		e, err := rt.store.GetEntity(ctx, opts.id)
		if err != nil {
			return err
		}
		if e.TranscriptPlain == "" {
			return fmt.Errorf("entity %s: %w", opts.id, digest.ErrNoTranscript)
		}

		gen, err := env.GeneratorFactory.NewGenerator(opts.provider.OrDefault(rt.cfg), rt.cfg)
		if err != nil {
			return err
		}
		enhancer := enhance.New(gen,
			enhance.WithAttempts(opts.attempts),
			enhance.WithEvaluator(opts.evaluator),
			enhance.WithLogger(rt.logger),
		)

		fmt.Fprintf(env.Stderr, "Enhancing %s with %s...\n", opts.id, model)
		return rt.runTask(ctx, env, tasks.Job{
			Kind:  tasks.KindEnhance,
			Scope: opts.collection + "/" + opts.id + "/" + model,
			Total: 1,
			Fn: func(ctx context.Context, p *tasks.Progress) error {
				text, err := enhancer.Enhance(ctx, model, e.TranscriptPlain)
				if err != nil {
					return err
				}
				path, err := enhance.Save(rt.cfg.DataDir, opts.collection, model, opts.id, text)
				if err != nil {
					return err
				}
				p.Advance()
				fmt.Fprintf(env.Stderr, "  Written to %s (run sync to record it)\n", path)
				return nil
			},
		})
	})
}
