package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/logging"
	"github.com/alnah/go-summarizeme/internal/store"
	"github.com/alnah/go-summarizeme/internal/tasks"
)

// runtime bundles what every store-backed command needs.
type runtime struct {
	cfg    config.Config
	store  *store.Store
	logger *slog.Logger
	tasks  *tasks.Dispatcher
}

// openRuntime loads config, builds the logger and opens the store.
func openRuntime(ctx context.Context, env *Env) (*runtime, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: env.Stderr})
	if err != nil {
		return nil, err
	}

	s, err := env.StoreOpener.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	progress := &progressPrinter{w: env.Stderr}
	return &runtime{
		cfg:    cfg,
		store:  s,
		logger: logger,
		tasks: tasks.NewDispatcher(s,
			tasks.WithWorkers(cfg.Workers),
			tasks.WithLogger(logger),
			tasks.WithProgress(progress.print),
		),
	}, nil
}

func (rt *runtime) Close() error {
	return rt.store.Close()
}

// lockPath is the cross-process lock guarding runs of kind.
func (rt *runtime) lockPath(kind string) string {
	return filepath.Join(rt.cfg.StateDir(), kind+".lock")
}

// runTask submits job, waits for it and prints its summary.
// The error returned by the work itself is passed through so that exit
// codes reflect its cause.
func (rt *runtime) runTask(ctx context.Context, env *Env, job tasks.Job) error {
	var workErr error
	fn := job.Fn
	job.Fn = func(ctx context.Context, p *tasks.Progress) error {
		workErr = fn(ctx, p)
		return workErr
	}

	id, err := rt.tasks.Submit(ctx, job)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Started %s run %s\n", job.Kind, id)
	rt.tasks.Wait()

	r, err := rt.tasks.Status(context.WithoutCancel(ctx), id)
	if err != nil {
		return err
	}
	writeRunSummary(env.Stderr, r)

	switch {
	case workErr != nil:
		return workErr
	case ctx.Err() != nil:
		return ctx.Err()
	case r.Status == store.RunFailed:
		return fmt.Errorf("%w: %s", ErrRunFailed, r.Message)
	}
	return nil
}

// withRuntime opens a runtime for fn and closes it afterwards.
func withRuntime(ctx context.Context, env *Env, fn func(rt *runtime) error) (err error) {
	rt, err := openRuntime(ctx, env)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rt.Close())
	}()
	return fn(rt)
}
