// Package chunk partitions long text into ordered, size-bounded chunks that
// respect sentence boundaries wherever a sentence fits within the limit.
package chunk

import (
	"strings"

	"github.com/alnah/go-summarizeme/internal/estimate"
)

// DefaultMaxSize is the chunk limit used for summaries, in estimator units.
const DefaultMaxSize = 4000

// Chunker packs sentences greedily, left to right, into chunks whose
// estimated size, measured on the joined text, stays within MaxSize.
type Chunker struct {
	est     estimate.Estimator
	maxSize int
}

// New returns a Chunker. A nil estimator counts words; maxSize below 1 is
// raised to 1.
func New(est estimate.Estimator, maxSize int) *Chunker {
	if est == nil {
		est = estimate.Words{}
	}
	return &Chunker{est: est, maxSize: max(maxSize, 1)}
}

// MaxSize returns the configured limit.
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Chunk splits text into chunks.
//
// Text that already fits is returned unchanged as the only chunk, without
// sentence splitting. Otherwise sentences accumulate until appending the
// next one would push the joined chunk over the limit. A sentence that
// alone exceeds the limit flushes the pending chunk and is split at word
// boundaries into groups that each fit. Sentences within one chunk are
// joined by a single space.
func (c *Chunker) Chunk(text string) []string {
	if c.est.Estimate(text) <= c.maxSize {
		return []string{text}
	}

	var (
		chunks  []string
		pending string
	)
	flush := func() {
		if pending != "" {
			chunks = append(chunks, pending)
			pending = ""
		}
	}

	for _, sentence := range SplitSentences(text) {
		if c.est.Estimate(sentence) > c.maxSize {
			flush()
			chunks = append(chunks, c.splitWords(sentence)...)
			continue
		}
		pending = c.extend(pending, sentence, flush)
	}
	flush()

	return chunks
}

// splitWords groups the words of an over-long sentence so that each joined
// group stays within the limit. Every group holds at least one word, so a
// single word larger than the limit forms its own group.
func (c *Chunker) splitWords(sentence string) []string {
	var (
		groups []string
		group  string
	)
	flush := func() {
		if group != "" {
			groups = append(groups, group)
			group = ""
		}
	}
	for _, w := range strings.Fields(sentence) {
		group = c.extend(group, w, flush)
	}
	flush()
	return groups
}

// extend appends part to acc when the joined text still fits. Otherwise it
// calls flush and starts over from part alone.
func (c *Chunker) extend(acc, part string, flush func()) string {
	if acc == "" {
		return part
	}
	if joined := acc + " " + part; c.est.Estimate(joined) <= c.maxSize {
		return joined
	}
	flush()
	return part
}

// Chunk splits text with a word-count estimator.
func Chunk(text string, maxSize int) []string {
	return New(estimate.Words{}, maxSize).Chunk(text)
}
