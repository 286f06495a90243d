package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/format"
	"github.com/alnah/go-summarizeme/internal/store"
)

// watchInterval is how often runs --watch polls the store.
const watchInterval = time.Second

// runsOptions holds validated options for the runs command.
type runsOptions struct {
	id            string
	limit         int
	watch         bool
	failAbandoned bool
}

// RunsCmd creates the runs command (inspect background runs).
func RunsCmd(env *Env) *cobra.Command {
	var opts runsOptions

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show background runs",
		Long: `List recent runs, or show one run with its errors.

Runs are recorded in the database, so a run started in another shell can
be followed here with --watch until it completes or fails.

A run left in progress by a process that died can be closed with
--fail-abandoned. Only use it when no other summarizeme process is working.`,
		Example: `  summarizeme runs
  summarizeme runs 3f2a9c1e-... --watch
  summarizeme runs --fail-abandoned`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.id = args[0]
			}
			if opts.limit < 0 {
				return fmt.Errorf("limit must be positive, got %d: %w", opts.limit, ErrInvalidValue)
			}
			return runRuns(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Poll the run until it ends")
	cmd.Flags().BoolVar(&opts.failAbandoned, "fail-abandoned", false, "Mark runs still in progress as failed")

	return cmd
}

func runRuns(ctx context.Context, env *Env, opts runsOptions) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		if opts.failAbandoned {
			n, err := rt.store.FailAbandonedRuns(ctx, "abandoned")
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stderr, "Marked %d run(s) as failed\n", n)
			if opts.id == "" {
				return nil
			}
		}

		if opts.id == "" {
			runs, err := rt.store.ListRuns(ctx, opts.limit)
			if err != nil {
				return err
			}
			writeRunsTable(env, runs)
			return nil
		}

		if opts.watch {
			return watchRun(ctx, env, rt.store, opts.id)
		}
		r, err := rt.store.GetRun(ctx, opts.id)
		if err != nil {
			return err
		}
		writeRunDetail(env, r)
		return nil
	})
}

// watchRun prints progress of id until it reaches a terminal status.
func watchRun(ctx context.Context, env *Env, s *store.Store, id string) error {
	progress := &progressPrinter{w: env.Stderr}
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		r, err := s.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if r.Done() {
			writeRunDetail(env, r)
			if r.Status == store.RunFailed {
				return fmt.Errorf("%w: %s", ErrRunFailed, r.Message)
			}
			return nil
		}
		progress.print(r.ID, r.Processed, r.Total)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func writeRunsTable(env *Env, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(env.Stdout, "No runs recorded.")
		return
	}

	now := env.Now()
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Kind,
			r.Scope,
			format.Label(string(r.Status)),
			format.Progress(r.Processed, r.Total),
			strconv.Itoa(len(r.Errors)),
			r.StartedAt.Local().Format(time.DateTime),
			format.Duration(format.Elapsed(r.StartedAt, r.FinishedAt, now)),
		})
	}
	fmt.Fprintln(env.Stdout, renderTable(
		[]string{"ID", "Kind", "Scope", "Status", "Progress", "Errors", "Started", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	))
}

func writeRunDetail(env *Env, r *store.Run) {
	w := env.Stdout
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Kind:     %s\n", r.Kind)
	fmt.Fprintf(w, "Scope:    %s\n", r.Scope)
	fmt.Fprintf(w, "Status:   %s\n", format.Label(string(r.Status)))
	fmt.Fprintf(w, "Progress: %s\n", format.Progress(r.Processed, r.Total))
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Elapsed:  %s\n", format.DurationHuman(format.Elapsed(r.StartedAt, r.FinishedAt, env.Now())))
	if r.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", r.Message)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "Errors:\n")
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}
