// Package emotion defines the Classifier interface for per-sentence emotion
// labelling services.
//
// A classifier receives the sentences of a transcript in order and answers with
// one free-form label per sentence ("calm", "nervous", ...). Labels are not
// validated here; the aggregator in internal/emotion folds unknown labels onto
// a neutral valence.
package emotion

import "context"

// Neutral is the label used when a sentence could not be classified.
const Neutral = "neutral"

// Classifier labels sentences with an emotion.
//
// Implementations must be safe for concurrent use. The returned slice should
// have one entry per input sentence; callers tolerate shorter or longer
// replies by padding with Neutral or truncating.
type Classifier interface {
	Classify(ctx context.Context, sentences []string) ([]string, error)
}

// Fallback returns the deterministic labelling used when no classifier is
// configured or the configured one fails: every sentence is Neutral.
func Fallback(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Neutral
	}
	return out
}
