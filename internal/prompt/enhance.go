package prompt

import "fmt"

// EnhanceInstructions tell the model how to clean up a raw transcript chunk.
// The evaluator receives the same text to judge compliance.
const EnhanceInstructions = `Transform the raw video transcript below into a readable text without timestamps
or excessive line breaks. Follow these rules exactly:
  1. Remove all timestamps, if any.
  2. Do not remove any words or content.
  3. Only correct words that look like transcription errors, and adjust sentence structure for readability.
  4. Do not summarize, paraphrase or omit anything beyond necessary grammar and spelling fixes.
  5. Present the result as continuous text or coherent paragraphs.`

// Enhance returns the rewrite prompt for one transcript chunk.
func Enhance(chunk string) string {
	return fmt.Sprintf("%s\n\nTranscript:\n%s", EnhanceInstructions, chunk)
}

// Evaluate returns the prompt asking a model to score, from 1 to 5, how
// strictly enhanced follows EnhanceInstructions for raw.
func Evaluate(raw, enhanced string) string {
	return fmt.Sprintf(`You verify whether instructions were followed when a transcript was transformed.

Instructions:
%s

Original transcript:
%s

Transformed transcript:
%s

Did the transformed transcript strictly follow all the instructions above?
Answer with a single score from 1 to 5, where 1 means not followed at all and 5 means
followed completely. No explanation. No additional text.`, EnhanceInstructions, raw, enhanced)
}
