// Package emotion summarizes the per-sentence emotion labels returned by the
// external classifier into a valence timeline and label statistics.
package emotion

import (
	"strings"

	provider "github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

// NeutralValence is the valence assigned to labels outside the vocabulary.
const NeutralValence = 5.0

// valence maps each recognized label to a value in [0, 10].
var valence = map[string]float64{
	"joy":        9,
	"excitement": 9,
	"confident":  8,
	"calm":       7,
	"surprise":   6,
	"neutral":    5,
	"confusion":  4,
	"nervous":    3,
	"fear":       2,
	"sadness":    2,
	"anger":      1,
	"disgust":    1,
}

// Valence returns the valence of label, or NeutralValence when unrecognized.
func Valence(label string) float64 {
	if v, ok := valence[canonical(label)]; ok {
		return v
	}
	return NeutralValence
}

// Sample is one sentence's label.
type Sample struct {
	SentenceIndex int
	Label         string
}

// Summary aggregates a label sequence.
type Summary struct {
	// Samples are the canonical labels in sentence order.
	Samples []Sample
	// MeanValence is the average valence over all samples.
	MeanValence float64
	// Counts is the number of occurrences per canonical label.
	Counts map[string]int
	// Dominant is the most frequent label; ties go to the label seen first.
	Dominant string
	// Distinct is the number of different labels.
	Distinct int
}

// Aggregate summarizes labels. ok is false when labels is empty.
func Aggregate(labels []string) (s Summary, ok bool) {
	if len(labels) == 0 {
		return Summary{}, false
	}

	s.Samples = make([]Sample, len(labels))
	s.Counts = make(map[string]int)
	var order []string
	var total float64
	for i, raw := range labels {
		l := canonical(raw)
		s.Samples[i] = Sample{SentenceIndex: i, Label: l}
		if s.Counts[l] == 0 {
			order = append(order, l)
		}
		s.Counts[l]++
		total += Valence(l)
	}
	s.MeanValence = total / float64(len(labels))
	s.Distinct = len(order)

	// order is first-appearance order, so a strict > keeps the earliest on ties.
	best := 0
	for _, l := range order {
		if s.Counts[l] > best {
			s.Dominant, best = l, s.Counts[l]
		}
	}
	return s, true
}

// Normalize fits classifier output to exactly one canonical label per
// sentence: missing or blank entries become neutral and extras are dropped.
func Normalize(labels []string, sentences int) []string {
	if sentences <= 0 {
		return []string{}
	}
	out := make([]string, sentences)
	for i := range out {
		if i < len(labels) && strings.TrimSpace(labels[i]) != "" {
			out[i] = canonical(labels[i])
		} else {
			out[i] = provider.Neutral
		}
	}
	return out
}

func canonical(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
