package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/syncer"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// syncOptions holds validated options for the sync command.
type syncOptions struct {
	root        string
	contentHash bool
	model       string
}

// SyncCmd creates the sync command (reconcile the artifact tree into the store).
func SyncCmd(env *Env) *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the artifact tree into the database",
		Long: `Walk the artifact root and record every transcript and derived
document in the database.

Each collection directory holds a transcripts/ directory of JSON files
and one directory per document kind (summaries_openai, summaries_ollama,
enhanced_<model>_transcript) of Markdown files. Existing transcripts are
never overwritten. Documents are rewritten only when the file is newer,
or when its content changed with --content-hash.

Only one sync runs at a time per machine.`,
		Example: `  summarizeme sync
  summarizeme sync --root ~/channels --content-hash`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "Artifact root (default: data-dir from config)")
	cmd.Flags().BoolVar(&opts.contentHash, "content-hash", false, "Also rewrite documents whose content changed")
	cmd.Flags().StringVar(&opts.model, "size-model", "", "Estimate sizes in tokens of this model instead of words")

	return cmd
}

func runSync(ctx context.Context, env *Env, opts syncOptions) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		root := opts.root
		if root == "" {
			root = rt.cfg.DataDir
		}

		lock, err := tasks.AcquireLock(rt.lockPath(tasks.KindSync))
		if err != nil {
			return err
		}
		defer func() { _ = lock.Release() }()

		// The lock proves no other sync is alive: rows still in progress
		// belong to a process that died.
		stale, err := rt.store.FailStaleRuns(ctx, tasks.KindSync, root, "abandoned")
		if err != nil {
			return err
		}
		if stale > 0 {
			fmt.Fprintf(env.Stderr, "Marked %d abandoned sync run(s) as failed\n", stale)
		}

		var est estimate.Estimator = estimate.Words{}
		if opts.model != "" {
			est = estimate.ForModel(opts.model, rt.logger)
		}
		engine := syncer.New(rt.store, root,
			syncer.WithEstimator(est),
			syncer.WithContentHash(opts.contentHash),
			syncer.WithLogger(rt.logger),
		)

		fmt.Fprintf(env.Stderr, "Syncing %s...\n", root)
		return rt.runTask(ctx, env, tasks.Job{
			Kind:  tasks.KindSync,
			Scope: root,
			Fn: func(ctx context.Context, p *tasks.Progress) error {
				stats, err := engine.Run(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(env.Stderr, "  %d collection(s), %d artifact(s): %d entities, %d links, %d documents added, %d updated, %d failed\n",
					stats.Collections, stats.Artifacts, stats.EntitiesInserted, stats.LinksInserted,
					stats.DocumentsInserted, stats.DocumentsUpdated, stats.Failed)
				return nil
			},
		})
	})
}
