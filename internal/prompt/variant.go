// Package prompt holds the prompt variants a transcript chunk is fanned out
// over, and the prompts used by the enhancement flow.
package prompt

import (
	"fmt"
	"strings"
)

// Variant name constants.
const (
	Concise       = "concise"
	KeyTopics     = "key_topics"
	Takeaways     = "takeaways"
	Comprehensive = "comprehensive"
)

// ---------------------------------------------------------------------------
// Variant type - represents a validated prompt variant
// ---------------------------------------------------------------------------

// Variant is a validated prompt variant name.
// Zero value is invalid and must not be used with Build().
type Variant struct {
	name string
}

// Pre-parsed variants.
var (
	ConciseVariant       = Variant{name: Concise}
	KeyTopicsVariant     = Variant{name: KeyTopics}
	TakeawaysVariant     = Variant{name: Takeaways}
	ComprehensiveVariant = Variant{name: Comprehensive}
)

// ParseVariant validates a variant name.
// Returns ErrUnknown for empty or unrecognized names.
func ParseVariant(s string) (Variant, error) {
	if s == "" {
		return Variant{}, fmt.Errorf("variant name cannot be empty: %w", ErrUnknown)
	}
	if _, ok := templates[s]; !ok {
		return Variant{}, fmt.Errorf("unknown variant %q: %w", s, ErrUnknown)
	}
	return Variant{name: s}, nil
}

// MustParseVariant parses a variant name, panicking if invalid.
// Use only for constants and tests.
func MustParseVariant(s string) Variant {
	v, err := ParseVariant(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the variant name. Empty for the zero value.
func (v Variant) String() string {
	return v.name
}

// IsZero reports whether no variant is set.
func (v Variant) IsZero() bool {
	return v.name == ""
}

// Build returns the prompt for one chunk. The prompt carries that chunk's
// text and nothing else from the transcript.
// Panics if called on zero value.
func (v Variant) Build(chunk string) string {
	if v.name == "" {
		panic("prompt.Variant.Build called on zero value")
	}
	return strings.TrimSpace(templates[v.name] + "\n\nTEXT:\n" + chunk)
}

// variantOrder is the canonical order of the four sections.
var variantOrder = []Variant{
	ConciseVariant,
	KeyTopicsVariant,
	TakeawaysVariant,
	ComprehensiveVariant,
}

var templates = map[string]string{
	Concise:       concisePrompt,
	KeyTopics:     keyTopicsPrompt,
	Takeaways:     takeawaysPrompt,
	Comprehensive: comprehensivePrompt,
}

// Variants returns all variants in canonical order.
func Variants() []Variant {
	result := make([]Variant, len(variantOrder))
	copy(result, variantOrder)
	return result
}

// Names returns the variant names in canonical order.
func Names() []string {
	names := make([]string, len(variantOrder))
	for i, v := range variantOrder {
		names[i] = v.name
	}
	return names
}

const concisePrompt = `You are an expert summarizer. Read the following text and write a concise summary
of no more than 150 words that covers the main idea only.`

const keyTopicsPrompt = `You are an expert note-taker. From the following text, list the main topics or themes
as short bullet points, favoring clarity and coverage.`

const takeawaysPrompt = `You are a teaching assistant. From the text below, list the key takeaways or lessons
the reader should remember. Keep them practical and clear, as short bullet points.`

const comprehensivePrompt = `You are a meticulous researcher. Write comprehensive notes about the following text,
capturing major points, examples, references and quotes. Organize the notes with headings
or bullet points and aim for thoroughness.`
