package chunk_test

// Coverage Notes:
// - SplitSentences: delimiters retained, remainder, whitespace dropping, runs of terminators.
// - Chunk: worked example, short-circuit, greedy packing, force-split, limit normalization.
// - Properties: sentence reconstruction and size bound over generated inputs.

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-summarizeme/internal/chunk"
	"github.com/alnah/go-summarizeme/internal/estimate"
)

// ---------------------------------------------------------------------------
// TestSplitSentences
// ---------------------------------------------------------------------------

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"basic", "Hello world. This is a test. ", []string{"Hello world.", "This is a test."}},
		{"question and exclamation", "Why? Because! Done.", []string{"Why?", "Because!", "Done."}},
		{"trailing remainder", "One. two without end", []string{"One.", "two without end"}},
		{"terminator runs stay together", "Wait... What?! ok", []string{"Wait...", "What?!", "ok"}},
		{"whitespace only", "  \n\t ", nil},
		{"empty", "", nil},
		{"stray punctuation between spaces", "A. . B.", []string{"A.", ".", "B."}},
		{"newlines inside", "line one\ncontinues. next", []string{"line one\ncontinues.", "next"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := chunk.SplitSentences(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSentences(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestChunk
// ---------------------------------------------------------------------------

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		maxSize int
		want    []string
	}{
		{
			name:    "flush then force split",
			text:    "Hello world. This is a test. ",
			maxSize: 3,
			want:    []string{"Hello world.", "This is a", "test."},
		},
		{
			name:    "short text returned verbatim",
			text:    "  Hello world. This is a test.  ",
			maxSize: 6,
			want:    []string{"  Hello world. This is a test.  "},
		},
		{
			name:    "empty text is a single empty chunk",
			text:    "",
			maxSize: 10,
			want:    []string{""},
		},
		{
			name:    "greedy packing",
			text:    "a b. c d. e f. g h.",
			maxSize: 4,
			want:    []string{"a b. c d.", "e f. g h."},
		},
		{
			name:    "exact fit does not flush",
			text:    "a b c. d. e f g h i.",
			maxSize: 4,
			want:    []string{"a b c. d.", "e f g h", "i."},
		},
		{
			name:    "zero limit behaves as one",
			text:    "a b. c.",
			maxSize: 0,
			want:    []string{"a", "b.", "c."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := chunk.Chunk(tt.text, tt.maxSize)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Chunk(%q, %d) mismatch (-want +got):\n%s", tt.text, tt.maxSize, diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestChunkProperties - reconstruction and size bound over generated text
// ---------------------------------------------------------------------------

func TestChunkProperties(t *testing.T) {
	t.Parallel()

	words := estimate.Words{}
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := range 200 {
		text := randomText(rng)
		limit := 1 + rng.IntN(12)
		chunks := chunk.Chunk(text, limit)

		if words.Estimate(text) <= limit {
			if len(chunks) != 1 || chunks[0] != text {
				t.Fatalf("iter %d: short text not returned verbatim: %q", iter, chunks)
			}
			continue
		}

		for _, c := range chunks {
			if n := words.Estimate(c); n > limit {
				t.Fatalf("iter %d: chunk %q has %d words, limit %d", iter, c, n, limit)
			}
		}

		wantWords := strings.Fields(strings.Join(chunk.SplitSentences(text), " "))
		gotWords := strings.Fields(strings.Join(chunks, " "))
		if diff := cmp.Diff(wantWords, gotWords); diff != "" {
			t.Fatalf("iter %d: words not reconstructed (-want +got):\n%s", iter, diff)
		}
	}
}

// TestChunkWithTokenEstimator checks the bound holds for a tokenizer too.
func TestChunkWithTokenEstimator(t *testing.T) {
	t.Parallel()

	tok, err := estimate.NewTokens("gpt-4")
	if err != nil {
		t.Fatalf("NewTokens() unexpected error: %v", err)
	}
	text := strings.Repeat("The committee reviewed the budget. Nobody objected! ", 40)
	c := chunk.New(tok, 50)

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := tok.Estimate(ch); n > c.MaxSize() {
			t.Errorf("chunk %d has %d tokens, limit %d", i, n, c.MaxSize())
		}
	}
}

// TestChunkWithTokenEstimator_JoinedText checks the bound on the joined
// chunk when joining costs more tokens than the sentences alone.
func TestChunkWithTokenEstimator_JoinedText(t *testing.T) {
	t.Parallel()

	tok, err := estimate.NewTokens("gpt-4")
	if err != nil {
		t.Fatalf("NewTokens() unexpected error: %v", err)
	}
	c := chunk.New(tok, 10)

	tests := []struct {
		name string
		text string
	}{
		{"numbered sentences", strings.Repeat("1. 2. 3. 4. 5. 6. 7. 8. 9. ", 30)},
		{"long sentence split by words", strings.Repeat("a1 b2 c3 d4 e5 f6 g7 h8 ", 20) + "end."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunks := c.Chunk(tt.text)
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}
			for i, ch := range chunks {
				if n := tok.Estimate(ch); n > c.MaxSize() {
					t.Errorf("chunk %d %q has %d tokens, limit %d", i, ch, n, c.MaxSize())
				}
			}
		})
	}
}

func randomText(rng *rand.Rand) string {
	var b strings.Builder
	sentences := 1 + rng.IntN(8)
	for s := range sentences {
		n := 1 + rng.IntN(15)
		for w := range n {
			if w > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "w%d_%d", s, w)
		}
		switch rng.IntN(4) {
		case 0:
			b.WriteString("? ")
		case 1:
			b.WriteString("! ")
		case 2:
			if s < sentences-1 {
				b.WriteString(". ")
			}
		default:
			b.WriteString(".  \n")
		}
	}
	return b.String()
}
