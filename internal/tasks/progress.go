package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alnah/go-summarizeme/internal/store"
)

// Progress records the progress of one run. It is safe for concurrent use.
// Store failures are logged; progress reporting never fails the run.
type Progress struct {
	store      *store.Store
	runID      string
	logger     *slog.Logger
	onProgress ProgressFunc

	mu        sync.Mutex
	processed int
	total     int
	errs      int
}

// RunID returns the ID of the run being reported.
func (p *Progress) RunID() string {
	return p.runID
}

// SetTotal sets the number of units the run will process.
func (p *Progress) SetTotal(n int) {
	p.mu.Lock()
	p.total = n
	p.mu.Unlock()

	if err := p.store.SetRunTotal(context.Background(), p.runID, n); err != nil {
		p.logger.Warn("set run total", "error", err)
	}
	p.notify()
}

// Advance marks one unit processed.
func (p *Progress) Advance() {
	p.mu.Lock()
	p.processed++
	p.mu.Unlock()

	if err := p.store.AdvanceRun(context.Background(), p.runID, 1); err != nil {
		p.logger.Warn("advance run", "error", err)
	}
	p.notify()
}

// Record appends a per-unit error to the run.
func (p *Progress) Record(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs++
	p.mu.Unlock()

	if serr := p.store.AppendRunError(context.Background(), p.runID, err.Error()); serr != nil {
		p.logger.Warn("record run error", "error", serr)
	}
}

// Errors returns the number of recorded errors.
func (p *Progress) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs
}

func (p *Progress) notify() {
	if p.onProgress == nil {
		return
	}
	p.mu.Lock()
	processed, total := p.processed, p.total
	p.mu.Unlock()
	p.onProgress(p.runID, processed, total)
}
