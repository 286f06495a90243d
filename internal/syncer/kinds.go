package syncer

import (
	"regexp"
	"strings"
)

// TranscriptsDir holds one JSON artifact per entity inside a collection.
const TranscriptsDir = "transcripts"

// DefaultKinds maps derived-document directories to the generator that
// produced their files.
func DefaultKinds() map[string]string {
	return map[string]string{
		"summaries_openai": "gpt-4o",
		"summaries_ollama": "llama3.2",
	}
}

// unsafeModelChars matches characters replaced in model names used as
// directory names, such as the slash of "library/llama3.2" or the colon
// of "phi4:latest".
var unsafeModelChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// EnhancedKind returns the directory name holding transcripts enhanced by
// model. Characters outside letters, digits, dot, underscore and hyphen
// become underscores.
func EnhancedKind(model string) string {
	return "enhanced_" + unsafeModelChars.ReplaceAllString(model, "_") + "_transcript"
}

// generatorFor resolves the generator of a derived-document directory.
// Enhanced transcript directories carry the model in their name.
func generatorFor(kinds map[string]string, dir string) (string, bool) {
	if g, ok := kinds[dir]; ok {
		return g, true
	}
	model, ok := strings.CutPrefix(dir, "enhanced_")
	if !ok {
		return "", false
	}
	model, ok = strings.CutSuffix(model, "_transcript")
	if !ok || model == "" {
		return "", false
	}
	return model, true
}
