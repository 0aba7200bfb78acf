package coaching

import (
	"fmt"
	"strings"

	"github.com/MrWong99/speechcoach/internal/highlight"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
)

// maxFallbackTips caps the number of tips in a fallback draft.
const maxFallbackTips = 3

// perfect is the score above which a dimension needs no tip.
const perfect = 0.999

// Fallback builds a deterministic draft from the numbers alone. The same
// inputs always produce the same draft.
func Fallback(p persona.Persona, m speech.Metrics, s scoring.Score, hs []highlight.Highlight) Draft {
	summary := fallbackSummary(p, m, s, hs)

	order := s.Dimensions.Weakest()
	var tips []string
	for _, dim := range order {
		if len(tips) == maxFallbackTips {
			break
		}
		if dimensionValue(s.Dimensions, dim) >= perfect {
			continue
		}
		tips = append(tips, tipFor(dim, p, m))
	}
	if len(tips) == 0 {
		tips = []string{fmt.Sprintf("Your delivery already matches the %s style. Keep the same rhythm and try a longer piece next time.", p.Name)}
	}

	exercise := "Record a two-minute talk on a new topic and keep every number inside your target band."
	if weakest := order[0]; dimensionValue(s.Dimensions, weakest) < perfect {
		exercise = exerciseFor(weakest, p)
	}

	d := s.Dimensions
	return Draft{
		Summary:  summary,
		Tips:     tips,
		Exercise: exercise,
		Scores10: Scores10{
			Confidence: d.Confidence * 10,
			Clarity:    d.Clarity * 10,
			Energy:     d.Pace * 10,
			Structure:  d.Clarity * 10,
		},
		Narration: ComposeNarration(summary, tips),
		Source:    SourceFallback,
	}
}

func fallbackSummary(p persona.Persona, m speech.Metrics, s scoring.Score, hs []highlight.Highlight) string {
	var b strings.Builder

	position := "inside"
	switch {
	case m.WordsPerMinute < p.Low():
		position = "below"
	case m.WordsPerMinute > p.High():
		position = "above"
	}
	fmt.Fprintf(&b, "You spoke at %.0f words per minute, %s the %.0f-%.0f range for %s.",
		m.WordsPerMinute, position, p.Low(), p.High(), p.Name)

	switch m.FillerCount {
	case 0:
		b.WriteString(" You used no filler words.")
	case 1:
		fmt.Fprintf(&b, " You used 1 filler word (%.1f per minute, target at most %.1f).",
			m.FillersPerMinute, p.Targets.MaxFillersPerMin)
	default:
		fmt.Fprintf(&b, " You used %d filler words (%.1f per minute, target at most %.1f).",
			m.FillerCount, m.FillersPerMinute, p.Targets.MaxFillersPerMin)
	}
	if len(hs) > 0 {
		b.WriteString(" They are highlighted in your transcript.")
	}
	fmt.Fprintf(&b, " Overall persona fit: %.0f%%.", s.Overall*100)
	return b.String()
}

func dimensionValue(d scoring.Dimensions, name string) float64 {
	switch name {
	case "pace":
		return d.Pace
	case "clarity":
		return d.Clarity
	case "confidence":
		return d.Confidence
	case "fillerControl":
		return d.FillerControl
	}
	return 1
}

func tipFor(dim string, p persona.Persona, m speech.Metrics) string {
	switch dim {
	case "pace":
		if m.WordsPerMinute > p.High() {
			return fmt.Sprintf("Slow down toward %.0f words per minute. Pause for a full breath at the end of each sentence.", p.High())
		}
		return fmt.Sprintf("Pick up the pace toward %.0f words per minute. Shorten pauses inside sentences and keep your energy up.", p.Low())
	case "fillerControl":
		return "Replace filler words with a silent pause. A short pause sounds more confident than um or like."
	case "confidence":
		return "Drop hedges such as I think, maybe and kind of. State your point directly, then support it."
	case "clarity":
		return "Keep sentences to one idea each, roughly 8 to 25 words, so listeners can follow you."
	}
	return ""
}

func exerciseFor(dim string, p persona.Persona) string {
	switch dim {
	case "pace":
		return fmt.Sprintf("Read a one-minute passage aloud with a timer and adjust until you land between %.0f and %.0f words per minute.", p.Low(), p.High())
	case "fillerControl":
		return "Repeat your introduction three times while consciously avoiding filler words like um and uh. Pause silently whenever you feel one coming."
	case "confidence":
		return "Write your three main points as plain statements without hedges, then say each one aloud twice."
	case "clarity":
		return "Retell your talk in exactly five sentences, one idea per sentence, then expand each sentence by one supporting detail."
	}
	return ""
}
