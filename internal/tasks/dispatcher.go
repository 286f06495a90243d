// Package tasks runs background work as durable, pollable runs.
//
// Submit records a run, hands back its ID and executes the work on a
// bounded pool. The run row is finalized on every exit path, panics
// included, so no run stays in progress after its work returns.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-summarizeme/internal/store"
)

// DefaultWorkers bounds concurrently executing runs.
const DefaultWorkers = 4

// Run kinds.
const (
	KindSync     = "sync"
	KindGenerate = "generate"
	KindIngest   = "ingest"
	KindEnhance  = "enhance"
)

// Func is the work of one run.
type Func func(ctx context.Context, p *Progress) error

// Job describes a run to submit. Scope narrows the exclusivity of Kind:
// two runs with the same Kind and Scope never overlap.
type Job struct {
	Kind  string
	Scope string
	Total int
	Fn    Func
}

// ProgressFunc observes progress of any run.
type ProgressFunc func(runID string, processed, total int)

// Dispatcher executes submitted runs.
type Dispatcher struct {
	store      *store.Store
	logger     *slog.Logger
	onProgress ProgressFunc
	now        func() time.Time

	group   errgroup.Group
	pending sync.WaitGroup

	mu     sync.Mutex
	active map[string]string // kind/scope -> run ID
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers bounds concurrently executing runs. n < 1 uses DefaultWorkers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n < 1 {
			n = DefaultWorkers
		}
		d.group.SetLimit(n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithProgress registers fn to observe progress.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Dispatcher) {
		d.onProgress = fn
	}
}

// NewDispatcher creates a Dispatcher recording runs in s.
func NewDispatcher(s *store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  s,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		active: make(map[string]string),
	}
	d.group.SetLimit(DefaultWorkers)
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "tasks")
	return d
}

func scopeKey(kind, scope string) string {
	return kind + "/" + scope
}

// Submit records a new run and starts job.Fn in the background.
// It returns ErrRunInProgress when a run with the same kind and scope is
// active in this process or recorded as in progress in the store.
// Cancelling ctx cancels the work; the run is then recorded as failed.
func (d *Dispatcher) Submit(ctx context.Context, job Job) (string, error) {
	if job.Fn == nil {
		return "", ErrNoTask
	}
	key := scopeKey(job.Kind, job.Scope)

	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.active[key]; ok {
		return "", fmt.Errorf("%s %q (%s): %w", job.Kind, job.Scope, id, ErrRunInProgress)
	}
	if r, err := d.store.ActiveRun(ctx, job.Kind, job.Scope); err == nil {
		return "", fmt.Errorf("%s %q (%s): %w", job.Kind, job.Scope, r.ID, ErrRunInProgress)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	run := store.Run{
		ID:        uuid.NewString(),
		Kind:      job.Kind,
		Scope:     job.Scope,
		Status:    store.RunInProgress,
		Total:     job.Total,
		StartedAt: d.now(),
	}
	if err := d.store.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	d.active[key] = run.ID
	d.logger.Info("run submitted", "run", run.ID, "kind", run.Kind, "scope", run.Scope)

	p := &Progress{
		store:      d.store,
		runID:      run.ID,
		total:      job.Total,
		logger:     d.logger.With("run", run.ID),
		onProgress: d.onProgress,
	}

	// Go blocks while the pool is full; queue from a goroutine so Submit
	// returns at once.
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		d.group.Go(func() error {
			d.execute(ctx, key, p, job.Fn)
			return nil
		})
	}()
	return run.ID, nil
}

func (d *Dispatcher) execute(ctx context.Context, key string, p *Progress, fn Func) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		status, msg := store.RunCompleted, ""
		if err != nil {
			status, msg = store.RunFailed, err.Error()
		}
		if ferr := d.store.FinishRun(context.WithoutCancel(ctx), p.runID, status, msg); ferr != nil {
			d.logger.Error("finish run", "run", p.runID, "error", ferr)
		}
		d.logger.Info("run finished", "run", p.runID, "status", status, "error", msg)

		d.mu.Lock()
		delete(d.active, key)
		d.mu.Unlock()
	}()

	if err = ctx.Err(); err != nil {
		return
	}
	err = fn(ctx, p)
}

// Wait blocks until every submitted run has finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
	_ = d.group.Wait()
}

// Status returns the durable record of a run.
func (d *Dispatcher) Status(ctx context.Context, id string) (*store.Run, error) {
	return d.store.GetRun(ctx, id)
}
