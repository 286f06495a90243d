package syncer

// Reporter receives run progress. Implementations must be safe to call
// from the goroutine running the engine.
type Reporter interface {
	SetTotal(n int)
	Advance()
	Record(err error)
}

// nopReporter discards progress.
type nopReporter struct{}

func (nopReporter) SetTotal(int) {}
func (nopReporter) Advance()     {}
func (nopReporter) Record(error) {}
