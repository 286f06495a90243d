// Package caption turns timed caption entries into the two canonical text
// encodings stored for every entity, and decodes the on-disk formats that
// carry those entries (transcript JSON artifacts and SRT subtitle files).
package caption

import (
	"fmt"
	"strings"
)

// Entry is a single timed caption line. Start and Duration are in seconds.
type Entry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Line renders the entry in timestamped form: "[12.00s - 3.50s] text".
func (e Entry) Line() string {
	return fmt.Sprintf("[%.2fs - %.2fs] %s", e.Start, e.Duration, e.Text)
}

// Normalize renders entries into their timestamped and plain encodings.
// Both encodings contain exactly one line per entry, in input order.
// Empty texts still contribute an (empty) line.
func Normalize(entries []Entry) (timestamped, plain string) {
	stamped := make([]string, len(entries))
	texts := make([]string, len(entries))
	for i, e := range entries {
		stamped[i] = e.Line()
		texts[i] = e.Text
	}
	return strings.Join(stamped, "\n"), strings.Join(texts, "\n")
}
