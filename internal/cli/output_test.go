package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-summarizeme/internal/store"
)

// ---------------------------------------------------------------------------
// Tests for renderTable
// ---------------------------------------------------------------------------

func TestRenderTable(t *testing.T) {
	t.Parallel()

	out := renderTable([]string{"Name", "Count"}, [][]string{{"Talks", "12"}, {"Short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "Count", "Talks", "12", "Short", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderTable() = %q, want containing %q", out, want)
		}
	}

	if got := renderTable(nil, nil, nil); got != "" {
		t.Errorf("renderTable(no headers) = %q, want empty", got)
	}
}

// ---------------------------------------------------------------------------
// Tests for progressPrinter and writeRunSummary
// ---------------------------------------------------------------------------

func TestProgressPrinter_SkipsRepeats(t *testing.T) {
	t.Parallel()

	buf := &syncBuffer{}
	p := &progressPrinter{w: buf}
	p.print("r", 0, 0)
	p.print("r", 1, 2)
	p.print("r", 1, 2)
	p.print("r", 2, 2)

	want := "  Progress: 0/?\n  Progress: 1/2 (50%)\n  Progress: 2/2 (100%)\n"
	if got := buf.String(); got != want {
		t.Errorf("progress output = %q, want %q", got, want)
	}
}

func TestWriteRunSummary(t *testing.T) {
	t.Parallel()

	buf := &syncBuffer{}
	writeRunSummary(buf, &store.Run{
		ID:        "r1",
		Status:    store.RunFailed,
		Processed: 1,
		Total:     2,
		Message:   "boom",
		StartedAt: time.Now(),
		Errors:    []string{"v2: timeout"},
	})

	want := "Run r1 Failed: 1/2 (50%), 1 error(s) (boom)\n  - v2: timeout\n"
	if got := buf.String(); got != want {
		t.Errorf("writeRunSummary() = %q, want %q", got, want)
	}
}
