package coaching

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MrWong99/speechcoach/pkg/provider/llm"
)

const systemPrompt = `You are a concise, encouraging public speaking coach.
You judge delivery against a target persona and explain how to get closer to it.
Respond ONLY with a single JSON object in exactly this structure and nothing else:
{
  "summary": string,
  "tips": [string, string, string],
  "exercise": string,
  "personaScores10": {
    "confidence": number,
    "clarity": number,
    "energy": number,
    "structure": number
  },
  "narration": string
}
Scores are between 0 and 10. "narration" is a short spoken version of the
summary and tips, written to be read aloud in under 30 seconds.`

// buildPrompt renders the per-attempt user message.
func buildPrompt(req Request) string {
	var b strings.Builder
	p := req.Persona
	fmt.Fprintf(&b, "Target persona: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Persona description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Persona targets: %.0f-%.0f words per minute, at most %.1f fillers per minute\n\n",
		p.Low(), p.High(), p.Targets.MaxFillersPerMin)

	m := req.Metrics
	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "- Words per minute: %.1f\n", m.WordsPerMinute)
	fmt.Fprintf(&b, "- Total words: %d\n", m.TotalWords)
	fmt.Fprintf(&b, "- Total fillers: %d\n", m.FillerCount)
	fmt.Fprintf(&b, "- Fillers per minute: %.1f\n\n", m.FillersPerMinute)

	d := req.Score.Dimensions
	fmt.Fprintf(&b, "Persona fit scores (0..1): pace %.2f, clarity %.2f, confidence %.2f, fillerControl %.2f, overall %.2f\n",
		d.Pace, d.Clarity, d.Confidence, d.FillerControl, req.Score.Overall)

	if len(req.Highlights) > 0 {
		idx := make([]string, len(req.Highlights))
		for i, h := range req.Highlights {
			idx[i] = strconv.Itoa(h.WordIndex)
		}
		fmt.Fprintf(&b, "Filler words at word positions (0-based): %s\n", strings.Join(idx, ", "))
	}

	fmt.Fprintf(&b, "\nUser transcript:\n\"\"\"%s\"\"\"\n", req.Transcript)
	return b.String()
}

var errNoJSON = errors.New("coaching: no usable JSON object in reply")

type replyScores struct {
	Confidence *float64 `json:"confidence"`
	Clarity    *float64 `json:"clarity"`
	Energy     *float64 `json:"energy"`
	Structure  *float64 `json:"structure"`
}

type reply struct {
	Summary         string       `json:"summary"`
	Tips            []string     `json:"tips"`
	Exercise        string       `json:"exercise"`
	PersonaScores10 *replyScores `json:"personaScores10"`
	Narration       string       `json:"narration"`
}

// parseReply extracts and validates the model's JSON draft.
func parseReply(content string) (Draft, error) {
	obj, ok := llm.ExtractJSONObject(content)
	if !ok {
		return Draft{}, errNoJSON
	}
	var r reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Draft{}, fmt.Errorf("coaching: invalid reply: %w", err)
		}
		return Draft{}, fmt.Errorf("%w: %w", errNoJSON, err)
	}

	var errs []error
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		errs = append(errs, errors.New("summary is empty"))
	}
	if len(r.Tips) == 0 {
		errs = append(errs, errors.New("tips are empty"))
	}
	tips := make([]string, 0, len(r.Tips))
	for i, t := range r.Tips {
		t = strings.TrimSpace(t)
		if t == "" {
			errs = append(errs, fmt.Errorf("tip %d is blank", i))
			continue
		}
		tips = append(tips, t)
	}
	exercise := strings.TrimSpace(r.Exercise)
	if exercise == "" {
		errs = append(errs, errors.New("exercise is empty"))
	}

	var scores Scores10
	if r.PersonaScores10 == nil {
		errs = append(errs, errors.New("personaScores10 missing"))
	} else {
		s := r.PersonaScores10
		for _, f := range []struct {
			name string
			v    *float64
			dst  *float64
		}{
			{"confidence", s.Confidence, &scores.Confidence},
			{"clarity", s.Clarity, &scores.Clarity},
			{"energy", s.Energy, &scores.Energy},
			{"structure", s.Structure, &scores.Structure},
		} {
			switch {
			case f.v == nil:
				errs = append(errs, fmt.Errorf("personaScores10.%s missing", f.name))
			case math.IsNaN(*f.v) || *f.v < 0 || *f.v > 10:
				errs = append(errs, fmt.Errorf("personaScores10.%s = %v out of [0,10]", f.name, *f.v))
			default:
				*f.dst = *f.v
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Draft{}, fmt.Errorf("coaching: invalid reply: %w", err)
	}

	narration := strings.TrimSpace(r.Narration)
	if narration == "" {
		narration = ComposeNarration(summary, tips)
	}
	return Draft{
		Summary:   summary,
		Tips:      tips,
		Exercise:  exercise,
		Scores10:  scores,
		Narration: narration,
		Source:    SourceLLM,
	}, nil
}
