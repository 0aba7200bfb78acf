package speech

import "errors"

var (
	// ErrInvalidDuration is returned when the recording duration is not positive.
	ErrInvalidDuration = errors.New("speech: duration must be greater than zero")

	// ErrEmptyTranscript is returned when the transcript contains no words.
	ErrEmptyTranscript = errors.New("speech: transcript contains no words")
)

// Metrics are the pace and filler figures of one transcript.
type Metrics struct {
	WordsPerMinute   float64
	TotalWords       int
	FillerCount      int
	FillersPerMinute float64
}

// Analysis is everything Extract derives from a transcript.
type Analysis struct {
	Tokens    []Token
	Sentences []Sentence
	// Fillers are the matched filler spans, ascending and non-overlapping.
	Fillers []Span
	// HedgeCount is the number of hedge phrase occurrences.
	HedgeCount int
	Seconds    float64
	Metrics    Metrics
}

// SentenceTexts returns the source text of each sentence in order.
func (a *Analysis) SentenceTexts() []string {
	out := make([]string, len(a.Sentences))
	for i, s := range a.Sentences {
		out[i] = s.Text
	}
	return out
}

// Extract tokenizes transcript and computes its delivery metrics for a
// recording lasting seconds. wpm is words / (seconds / 60).
func Extract(transcript string, seconds float64) (*Analysis, error) {
	if !(seconds > 0) {
		return nil, ErrInvalidDuration
	}
	tokens, sentences := tokenize(transcript)
	if len(tokens) == 0 {
		return nil, ErrEmptyTranscript
	}

	fillers := Fillers.Match(tokens)
	hedges := Hedges.Match(tokens)

	minutes := seconds / 60
	return &Analysis{
		Tokens:     tokens,
		Sentences:  sentences,
		Fillers:    fillers,
		HedgeCount: len(hedges),
		Seconds:    seconds,
		Metrics: Metrics{
			WordsPerMinute:   float64(len(tokens)) / minutes,
			TotalWords:       len(tokens),
			FillerCount:      len(fillers),
			FillersPerMinute: float64(len(fillers)) / minutes,
		},
	}, nil
}
