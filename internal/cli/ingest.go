package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/ingest"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// IngestCmd creates the ingest command (fetch a collection's transcripts).
func IngestCmd(env *Env) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest <collection-key>",
		Short: "Fetch the transcripts of a collection",
		Long: `Fetch the transcript of every entity listed under a collection key.

The source directory holds one directory per key with <id>.json transcript
artifacts or <id>.srt caption files. Fetched transcripts are stored in the
database and written under the artifact root so that sync sees them.
Entities that already have a transcript are linked but not fetched again.`,
		Example: `  summarizeme ingest PL123 --source ~/captions`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("source %s: %w", source, ErrFileNotFound)
			}
			return runIngest(cmd.Context(), env, args[0], source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Directory of caption files (required)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runIngest(ctx context.Context, env *Env, key, source string) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		src := ingest.NewDirSource(source)
		in := ingest.New(rt.store, src, src,
			ingest.WithArtifactRoot(rt.cfg.DataDir),
			ingest.WithLogger(rt.logger),
		)

		fmt.Fprintf(env.Stderr, "Ingesting %s from %s...\n", key, source)
		return rt.runTask(ctx, env, tasks.Job{
			Kind:  tasks.KindIngest,
			Scope: key,
			Fn: func(ctx context.Context, p *tasks.Progress) error {
				stats, err := in.Run(ctx, p, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Stderr, "  %d listed: %d fetched, %d already present, %d failed\n",
					stats.Listed, stats.Fetched, stats.Present, stats.Failed)
				return nil
			},
		})
	})
}
