package chunk

import "strings"

// terminators end a sentence. A run of them ("?!", "...") stays together.
const terminators = ".?!"

// SplitSentences splits text after each run of terminal punctuation.
// The punctuation stays on the sentence it ends, trailing text without a
// terminator becomes the last sentence, and every sentence is trimmed.
// Sentences that are empty after trimming are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	for {
		i := strings.IndexAny(text, terminators)
		if i < 0 {
			break
		}
		end := i + 1
		for end < len(text) && strings.IndexByte(terminators, text[end]) >= 0 {
			end++
		}
		add(text[:end])
		text = text[end:]
	}
	add(text)
	return sentences
}
