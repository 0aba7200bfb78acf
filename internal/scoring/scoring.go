// Package scoring rates a transcript analysis against a persona's targets.
//
// Four dimensions are scored in [0, 1]: pace and filler control come straight
// from the persona's numeric targets, while clarity and confidence are text
// heuristics behind the StructureHeuristic interface. The overall score is the
// unweighted mean of the four. Everything here is pure and deterministic.
package scoring

import (
	"math"

	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/speech"
)

// Dimensions are the per-dimension scores, each in [0, 1].
type Dimensions struct {
	Pace          float64
	Clarity       float64
	Confidence    float64
	FillerControl float64
}

// Score is a persona-relative rating of one attempt.
type Score struct {
	Overall    float64
	Dimensions Dimensions
}

// minBandWidth keeps pace decay finite for personas with lo == hi.
const minBandWidth = 1.0

// Pace is 1 inside [lo, hi] and decays linearly to 0 once wpm is a full band
// width away from the nearest edge.
func Pace(wpm, lo, hi float64) float64 {
	if wpm >= lo && wpm <= hi {
		return 1
	}
	width := math.Max(hi-lo, minBandWidth)
	var dist float64
	if wpm < lo {
		dist = lo - wpm
	} else {
		dist = wpm - hi
	}
	return clamp01(1 - dist/width)
}

// FillerControl is 1 − fpm/maxFPM clamped to [0, 1]. A persona with no
// filler tolerance scores 1 only when there are no fillers at all.
func FillerControl(fpm, maxFPM float64) float64 {
	if maxFPM <= 0 {
		if fpm <= 0 {
			return 1
		}
		return 0
	}
	return clamp01(1 - fpm/maxFPM)
}

// Scorer computes Scores. The zero value is not usable; use New.
type Scorer struct {
	heuristic StructureHeuristic
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithHeuristic replaces the default SentenceHeuristic.
func WithHeuristic(h StructureHeuristic) Option {
	return func(s *Scorer) {
		s.heuristic = h
	}
}

// New creates a Scorer using DefaultHeuristic unless overridden.
func New(opts ...Option) *Scorer {
	s := &Scorer{heuristic: DefaultHeuristic()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score rates a against p.
func (s *Scorer) Score(a *speech.Analysis, p persona.Persona) Score {
	m := a.Metrics
	d := Dimensions{
		Pace:          Pace(m.WordsPerMinute, p.Low(), p.High()),
		FillerControl: FillerControl(m.FillersPerMinute, p.Targets.MaxFillersPerMin),
	}
	d.Clarity = clamp01(s.heuristic.Clarity(a))
	d.Confidence = clamp01(s.heuristic.Confidence(a, d.FillerControl))

	return Score{
		Overall:    clamp01((d.Pace + d.Clarity + d.Confidence + d.FillerControl) / 4),
		Dimensions: d,
	}
}

// Weakest returns the dimension names ordered from lowest to highest score.
// Ties keep the order pace, clarity, confidence, fillerControl.
func (d Dimensions) Weakest() []string {
	names := []string{"pace", "clarity", "confidence", "fillerControl"}
	vals := map[string]float64{
		"pace":          d.Pace,
		"clarity":       d.Clarity,
		"confidence":    d.Confidence,
		"fillerControl": d.FillerControl,
	}
	// Insertion sort keeps it stable for four entries.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && vals[names[j]] < vals[names[j-1]]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
