package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one word of the transcript.
type Token struct {
	// Index is the 0-based position of the token in the transcript.
	Index int
	// Text is the token as written.
	Text string
	// Norm is the case-folded form with elongated hesitations collapsed
	// ("Ummm" -> "um").
	Norm string
	// Sentence is the index of the sentence containing the token.
	Sentence int
}

// Sentence is a run of tokens terminated by '.', '?' or '!' (or the end of
// the transcript).
type Sentence struct {
	Index int
	// Start and End delimit the sentence's tokens as a half-open range.
	Start, End int
	// Text is the trimmed source text of the sentence, punctuation included.
	Text string
}

// Len returns the number of tokens in the sentence.
func (s Sentence) Len() int { return s.End - s.Start }

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\'' || r == '’' || r == '-'
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// tokenize splits text into word tokens and sentences. A terminator between
// two digits ("3.5") does not end a sentence.
func tokenize(text string) ([]Token, []Sentence) {
	var (
		tokens    []Token
		sentences []Sentence
		sentStart = 0 // token index where the current sentence begins
		textStart = -1
	)

	closeSentence := func(textEnd int) {
		if len(tokens) == sentStart {
			return
		}
		sentences = append(sentences, Sentence{
			Index: len(sentences),
			Start: sentStart,
			End:   len(tokens),
			Text:  strings.TrimSpace(text[textStart:textEnd]),
		})
		sentStart = len(tokens)
		textStart = -1
	}

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case isWordRune(r):
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			word := text[start:i]
			if strings.Trim(word, "'’-") == "" {
				continue
			}
			if textStart < 0 {
				textStart = start
			}
			tokens = append(tokens, Token{
				Index:    len(tokens),
				Text:     word,
				Norm:     normalize(word),
				Sentence: len(sentences),
			})
			continue
		case isTerminator(r):
			if !(r == '.' && digitBefore(text, i) && digitAfter(text, i+size)) {
				// Swallow runs like "?!" or "..." into one boundary.
				end := i + size
				for end < len(text) {
					r2, s2 := utf8.DecodeRuneInString(text[end:])
					if !isTerminator(r2) {
						break
					}
					end += s2
				}
				closeSentence(end)
				i = end
				continue
			}
		}
		i += size
	}
	closeSentence(len(text))
	return tokens, sentences
}

func digitBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsDigit(r)
}

func digitAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsDigit(r)
}

// normalize case-folds a word, unifies apostrophes and collapses drawn-out
// hesitation sounds to their lexicon form.
func normalize(word string) string {
	w := strings.ToLower(strings.ReplaceAll(word, "’", "'"))
	w = strings.Trim(w, "'-")
	if base, ok := hesitationBase(w); ok {
		return base
	}
	return w
}

// hesitationBase maps elongated hesitations such as "ummm", "uhhh", "erm",
// "ahh" and "hmmm" onto um, uh, er, ah and hmm.
func hesitationBase(w string) (string, bool) {
	runs := collapse(w)
	switch runs {
	case "um":
		return "um", true
	case "uh":
		return "uh", true
	case "er", "erm":
		return "er", true
	case "ah":
		return "ah", true
	case "hm":
		return "hmm", true
	}
	return "", false
}

// collapse removes consecutive duplicate letters: "uhhhh" -> "uh".
func collapse(w string) string {
	var b strings.Builder
	var prev rune
	for i, r := range w {
		if i > 0 && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
