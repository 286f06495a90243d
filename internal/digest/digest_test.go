package digest_test

// Coverage Notes:
// - Merge ordering, joining, trimming and failure attribution, sequential and parallel.
// - Pipeline idempotency: a second call makes no generation calls and writes no row.
// - Nothing is persisted when any generation call fails.
// - A duplicate insert from a concurrent writer is a skip, not an error.
// - Batch isolates per-entity failures and links entities to the collection.

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/digest"
	"github.com/alnah/go-summarizeme/internal/prompt"
	"github.com/alnah/go-summarizeme/internal/store"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockGenerator answers from a prompt→output table, or echoes the prompt
// length when the prompt is unknown. fail marks prompts that error.
type mockGenerator struct {
	mu      sync.Mutex
	calls   []string
	answers map[string]string
	fail    func(prompt string) error
	onCall  func()
	jitter  bool
}

func (m *mockGenerator) Generate(ctx context.Context, model, p string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	hook := m.onCall
	m.onCall = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if m.jitter {
		time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)
	}
	if m.fail != nil {
		if err := m.fail(p); err != nil {
			return "", err
		}
	}
	if out, ok := m.answers[p]; ok {
		return out, nil
	}
	return "summary", nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockReporter struct {
	mu       sync.Mutex
	total    int
	advanced int
	errs     []string
}

func (r *mockReporter) SetTotal(n int) { r.mu.Lock(); r.total = n; r.mu.Unlock() }
func (r *mockReporter) Advance()       { r.mu.Lock(); r.advanced++; r.mu.Unlock() }
func (r *mockReporter) Record(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err.Error())
	r.mu.Unlock()
}

var errBackend = errors.New("backend down")

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedEntity(t *testing.T, s *store.Store, collection, id, plain string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.InsertEntityIfAbsent(ctx, store.Entity{
		ID:              id,
		Title:           "Title " + id,
		UploadDate:      store.UnknownDate,
		TranscriptPlain: plain,
	})
	require.NoError(t, err)
	if collection != "" {
		_, err = s.LinkCollection(ctx, collection, "PL-"+collection, id)
		require.NoError(t, err)
	}
}

// ---------------------------------------------------------------------------
// TestMerger_Merge
// ---------------------------------------------------------------------------

func TestMerger_Merge(t *testing.T) {
	t.Parallel()

	concise, topics := prompt.ConciseVariant, prompt.KeyTopicsVariant
	variants := []prompt.Variant{concise, topics}

	t.Run("joins per variant in chunk order", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{answers: map[string]string{
			concise.Build("c1"): "A1",
			concise.Build("c2"): "A2",
			topics.Build("c1"):  "B1",
			topics.Build("c2"):  "B2",
		}}
		got, err := digest.NewMerger(gen, 1).Merge(context.Background(), "m", []string{"c1", "c2"}, variants)
		require.NoError(t, err)

		want := map[prompt.Variant]string{concise: "A1\nA2", topics: "B1\nB2"}
		require.Equal(t, want, got)

		wantCalls := []string{concise.Build("c1"), topics.Build("c1"), concise.Build("c2"), topics.Build("c2")}
		require.Equal(t, wantCalls, gen.calls, "sequential merge is chunk-major")
	})

	t.Run("keeps duplicates and trims the result", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{answers: map[string]string{
			concise.Build("c1"): "  same",
			concise.Build("c2"): "same",
			concise.Build("c3"): "tail\n\n",
		}}
		got, err := digest.NewMerger(gen, 1).Merge(context.Background(), "m", []string{"c1", "c2", "c3"}, []prompt.Variant{concise})
		require.NoError(t, err)
		require.Equal(t, "same\nsame\ntail", got[concise])
	})

	t.Run("parallel calls keep chunk order", func(t *testing.T) {
		t.Parallel()

		chunks := make([]string, 12)
		answers := map[string]string{}
		var want []string
		for i := range chunks {
			chunks[i] = "chunk" + string(rune('a'+i))
			answers[concise.Build(chunks[i])] = "out" + string(rune('a'+i))
			want = append(want, "out"+string(rune('a'+i)))
		}
		gen := &mockGenerator{answers: answers, jitter: true}

		got, err := digest.NewMerger(gen, 4).Merge(context.Background(), "m", chunks, []prompt.Variant{concise})
		require.NoError(t, err)
		require.Equal(t, strings.Join(want, "\n"), got[concise])
	})

	t.Run("single failure aborts with attribution", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{fail: func(p string) error {
			if p == topics.Build("c2") {
				return errBackend
			}
			return nil
		}}
		got, err := digest.NewMerger(gen, 1).Merge(context.Background(), "m", []string{"c1", "c2", "c3"}, variants)
		require.ErrorIs(t, err, errBackend)
		require.Contains(t, err.Error(), "chunk 2/3 (key_topics)")
		require.Nil(t, got)
		require.Equal(t, 4, gen.callCount(), "calls after the failure are not made")
	})

	t.Run("no chunks yields empty sections", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{}
		got, err := digest.NewMerger(gen, 0).Merge(context.Background(), "m", nil, variants)
		require.NoError(t, err)
		require.Equal(t, "", got[concise])
		require.Zero(t, gen.callCount())
	})
}

// ---------------------------------------------------------------------------
// TestPipeline_Summarize
// ---------------------------------------------------------------------------

func TestPipeline_Summarize(t *testing.T) {
	t.Parallel()

	t.Run("second call is a skip with no generation", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "", "v1", "One. Two.")
		gen := &mockGenerator{}
		p := digest.NewPipeline(s, gen, digest.WithChunker(chunk.New(nil, 1)))

		outcome, err := p.Summarize(ctx, "v1", "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.Generated, outcome)
		require.Equal(t, 2*len(prompt.Variants()), gen.callCount())

		outcome, err = p.Summarize(ctx, "v1", "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.Skipped, outcome)
		require.Equal(t, 2*len(prompt.Variants()), gen.callCount(), "no calls on the second run")

		docs, err := s.EntityDocuments(ctx, "v1")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "summary\nsummary", docs[0].Concise)
		require.Equal(t, store.KindSummary, docs[0].Kind)
		require.Equal(t, "gpt-4o", docs[0].Generator)
	})

	t.Run("other generator is not skipped", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "", "v1", "Short.")
		p := digest.NewPipeline(s, &mockGenerator{})

		for _, model := range []string{"gpt-4o", "llama3.2"} {
			outcome, err := p.Summarize(ctx, "v1", model)
			require.NoError(t, err)
			require.Equal(t, digest.Generated, outcome)
		}
		docs, err := s.EntityDocuments(ctx, "v1")
		require.NoError(t, err)
		require.Len(t, docs, 2)
	})

	t.Run("failure persists nothing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "", "v1", "One. Two. Three.")
		gen := &mockGenerator{fail: func(p string) error {
			if strings.Contains(p, "Three.") {
				return errBackend
			}
			return nil
		}}
		p := digest.NewPipeline(s, gen, digest.WithChunker(chunk.New(nil, 1)), digest.WithParallel(3))

		_, err := p.Summarize(ctx, "v1", "gpt-4o")
		require.ErrorIs(t, err, errBackend)

		docs, err := s.EntityDocuments(ctx, "v1")
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("concurrent writer turns insert into skip", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "", "v1", "Short.")
		gen := &mockGenerator{onCall: func() {
			_, err := s.InsertDocument(ctx, store.Document{EntityID: "v1", Kind: store.KindSummary, Generator: "gpt-4o", Concise: "theirs"})
			if err != nil {
				t.Error(err)
			}
		}}
		p := digest.NewPipeline(s, gen)

		outcome, err := p.Summarize(ctx, "v1", "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.Skipped, outcome)

		docs, err := s.EntityDocuments(ctx, "v1")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "theirs", docs[0].Concise)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "", "empty", "")
		gen := &mockGenerator{}
		p := digest.NewPipeline(s, gen)

		_, err := p.Summarize(ctx, "missing", "gpt-4o")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = p.Summarize(ctx, "empty", "gpt-4o")
		require.ErrorIs(t, err, digest.ErrNoTranscript)
		require.Zero(t, gen.callCount())
	})
}

// ---------------------------------------------------------------------------
// TestPipeline_Batch
// ---------------------------------------------------------------------------

func TestPipeline_Batch(t *testing.T) {
	t.Parallel()

	t.Run("isolates per-entity failures", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "Talks", "v1", "Alpha.")
		seedEntity(t, s, "Talks", "v2", "Beta.")
		seedEntity(t, s, "Talks", "v3", "Gamma.")
		gen := &mockGenerator{fail: func(p string) error {
			if strings.Contains(p, "Beta.") {
				return errBackend
			}
			return nil
		}}
		p := digest.NewPipeline(s, gen)
		r := &mockReporter{}

		stats, err := p.Batch(ctx, r, "Talks", []string{"v1", "v2", "v3"}, "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.BatchStats{Generated: 2, Failed: 1}, stats)
		require.Equal(t, 3, r.total)
		require.Equal(t, 3, r.advanced)
		require.Len(t, r.errs, 1)
		require.True(t, strings.HasPrefix(r.errs[0], "v2: "), r.errs[0])

		counts, err := s.Counts(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, counts.Documents)
	})

	t.Run("empty ids covers the collection and rerun skips", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "Talks", "v1", "Alpha.")
		seedEntity(t, s, "Talks", "v2", "Beta.")
		p := digest.NewPipeline(s, &mockGenerator{})

		stats, err := p.Batch(ctx, &mockReporter{}, "Talks", nil, "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.BatchStats{Generated: 2}, stats)

		stats, err = p.Batch(ctx, &mockReporter{}, "Talks", nil, "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, digest.BatchStats{Skipped: 2}, stats)
	})

	t.Run("links entities into the collection", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := openStore(t)
		seedEntity(t, s, "Talks", "v1", "Alpha.")
		seedEntity(t, s, "", "v9", "Loose.")
		p := digest.NewPipeline(s, &mockGenerator{})

		_, err := p.Batch(ctx, &mockReporter{}, "Talks", []string{"v9"}, "gpt-4o")
		require.NoError(t, err)

		rows, err := s.CollectionRows(ctx, "Talks")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			require.Equal(t, "PL-Talks", row.ExternalKey)
		}
	})

	t.Run("unknown entity is recorded", func(t *testing.T) {
		t.Parallel()

		s := openStore(t)
		r := &mockReporter{}
		stats, err := digest.NewPipeline(s, &mockGenerator{}).Batch(context.Background(), r, "New", []string{"ghost"}, "gpt-4o")
		require.NoError(t, err)
		require.Equal(t, 1, stats.Failed)
		require.Len(t, r.errs, 1)
	})

	t.Run("unknown collection without ids", func(t *testing.T) {
		t.Parallel()

		s := openStore(t)
		_, err := digest.NewPipeline(s, &mockGenerator{}).Batch(context.Background(), &mockReporter{}, "Nope", nil, "gpt-4o")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		t.Parallel()

		s := openStore(t)
		seedEntity(t, s, "Talks", "v1", "Alpha.")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := digest.NewPipeline(s, &mockGenerator{}).Batch(ctx, &mockReporter{}, "Talks", nil, "gpt-4o")
		require.ErrorIs(t, err, context.Canceled)
	})
}
