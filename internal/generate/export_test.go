package generate

// Exports for testing.
var (
	ClassifyOpenAIError = classifyOpenAIError
	ClassifyOllamaError = classifyOllamaError
)
