package speech

import (
	"sort"
	"strings"
)

// phrase is a lexicon entry split into normalized words.
type phrase struct {
	words []string
	// sentenceStart restricts matches to the first token of a sentence.
	sentenceStart bool
}

func (p phrase) String() string { return strings.Join(p.words, " ") }

// Lexicon is an ordered set of phrases matched greedily, longest first.
type Lexicon struct {
	phrases []phrase
}

// newLexicon builds a Lexicon. Entries prefixed with "^" only match at the
// start of a sentence.
func newLexicon(entries ...string) *Lexicon {
	l := &Lexicon{}
	for _, e := range entries {
		p := phrase{}
		if strings.HasPrefix(e, "^") {
			p.sentenceStart = true
			e = e[1:]
		}
		p.words = strings.Fields(strings.ToLower(e))
		l.phrases = append(l.phrases, p)
	}
	sort.SliceStable(l.phrases, func(i, j int) bool {
		return len(l.phrases[i].words) > len(l.phrases[j].words)
	})
	return l
}

// Fillers is the fixed filler lexicon. Discourse markers that are ordinary
// words mid-sentence ("so", "well", "right", "okay") only count when they
// open a sentence.
var Fillers = newLexicon(
	"um", "uh", "er", "ah", "hmm",
	"like", "basically", "actually", "literally",
	"^so", "^well", "^right", "^okay", "^ok",
	"you know", "i mean", "kind of", "sort of", "you see",
)

// Hedges is the lexicon of hedging phrases used as a confidence signal.
var Hedges = newLexicon(
	"i think", "i guess", "maybe", "perhaps", "probably",
	"sort of", "kind of", "i feel like", "might", "just",
)

// Span is a matched phrase covering tokens [Start, End).
type Span struct {
	Start, End int
	Phrase     string
}

// Match scans tokens left to right and returns non-overlapping spans. At each
// position the longest matching phrase wins; a phrase never crosses a
// sentence boundary.
func (l *Lexicon) Match(tokens []Token) []Span {
	var spans []Span
	for i := 0; i < len(tokens); {
		if p, ok := l.matchAt(tokens, i); ok {
			n := len(p.words)
			spans = append(spans, Span{Start: i, End: i + n, Phrase: p.String()})
			i += n
			continue
		}
		i++
	}
	return spans
}

func (l *Lexicon) matchAt(tokens []Token, i int) (phrase, bool) {
	atSentenceStart := i == 0 || tokens[i-1].Sentence != tokens[i].Sentence
	for _, p := range l.phrases {
		if p.sentenceStart && !atSentenceStart {
			continue
		}
		if i+len(p.words) > len(tokens) {
			continue
		}
		matched := true
		for k, w := range p.words {
			t := tokens[i+k]
			if t.Norm != w || t.Sentence != tokens[i].Sentence {
				matched = false
				break
			}
		}
		if matched {
			return p, true
		}
	}
	return phrase{}, false
}
