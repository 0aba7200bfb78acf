// Package highlight maps detected delivery issues back onto transcript word
// positions so a client can mark them inline.
package highlight

import (
	"sort"

	"github.com/MrWong99/speechcoach/internal/speech"
)

// Type tags the issue a highlight points at.
type Type string

const (
	// Filler marks the first word of a filler phrase.
	Filler Type = "filler"
	// Pace is reserved for pace signals; nothing emits it yet.
	Pace Type = "pace"
	// Confidence is reserved for confidence signals; nothing emits it yet.
	Confidence Type = "confidence"
)

// Highlight flags one word of the transcript.
type Highlight struct {
	WordIndex int
	Type      Type
}

// Locate returns one Filler highlight per filler span, placed on the span's
// first token. The result is strictly ascending by WordIndex and every index
// is below a.Metrics.TotalWords.
func Locate(a *speech.Analysis) []Highlight {
	if a == nil || len(a.Fillers) == 0 {
		return []Highlight{}
	}
	total := len(a.Tokens)
	seen := make(map[int]bool, len(a.Fillers))
	out := make([]Highlight, 0, len(a.Fillers))
	for _, span := range a.Fillers {
		idx := span.Start
		if idx < 0 || idx >= total || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, Highlight{WordIndex: idx, Type: Filler})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WordIndex < out[j].WordIndex })
	return out
}
