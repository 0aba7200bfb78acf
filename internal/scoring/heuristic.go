package scoring

import (
	"math"

	"github.com/MrWong99/speechcoach/internal/speech"
)

// StructureHeuristic estimates the dimensions that have no direct acoustic
// signal. Results outside [0, 1] are clamped by the Scorer.
type StructureHeuristic interface {
	Clarity(a *speech.Analysis) float64
	Confidence(a *speech.Analysis, fillerControl float64) float64
}

// SentenceHeuristic derives clarity from sentence shape and confidence from
// hedge density.
//
// Clarity is the average of a length score and a consistency score. The length
// score is 1 while the mean sentence length lies in [MinWords, MaxWords] and
// falls linearly to 0 at MinWords/2 below the band and at 2*MaxWords above it.
// Consistency is 1 − min(1, cv) where cv is the coefficient of variation of
// sentence lengths.
//
// Confidence blends hedge avoidance (HedgeWeight) with filler control: hedge
// avoidance is 1 − min(1, hedgesPer100Words / HedgeCeiling).
type SentenceHeuristic struct {
	MinWords     float64
	MaxWords     float64
	HedgeCeiling float64
	HedgeWeight  float64
}

var _ StructureHeuristic = SentenceHeuristic{}

// DefaultHeuristic returns the SentenceHeuristic used by New.
func DefaultHeuristic() SentenceHeuristic {
	return SentenceHeuristic{
		MinWords:     8,
		MaxWords:     25,
		HedgeCeiling: 5,
		HedgeWeight:  0.6,
	}
}

// Clarity implements StructureHeuristic.
func (h SentenceHeuristic) Clarity(a *speech.Analysis) float64 {
	if len(a.Sentences) == 0 {
		return 0
	}
	lengths := make([]float64, len(a.Sentences))
	for i, s := range a.Sentences {
		lengths[i] = float64(s.Len())
	}
	mean, cv := meanCV(lengths)
	return 0.5*h.lengthScore(mean) + 0.5*(1-math.Min(1, cv))
}

func (h SentenceHeuristic) lengthScore(mean float64) float64 {
	switch {
	case mean < h.MinWords:
		floor := h.MinWords / 2
		return clamp01((mean - floor) / (h.MinWords - floor))
	case mean > h.MaxWords:
		return clamp01(1 - (mean-h.MaxWords)/h.MaxWords)
	default:
		return 1
	}
}

// Confidence implements StructureHeuristic.
func (h SentenceHeuristic) Confidence(a *speech.Analysis, fillerControl float64) float64 {
	words := a.Metrics.TotalWords
	if words == 0 {
		return 0
	}
	per100 := float64(a.HedgeCount) * 100 / float64(words)
	hedgeScore := 1 - math.Min(1, per100/h.HedgeCeiling)
	return h.HedgeWeight*hedgeScore + (1-h.HedgeWeight)*fillerControl
}

// meanCV returns the mean and population coefficient of variation. A single
// value has cv 0.
func meanCV(xs []float64) (mean, cv float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 || mean == 0 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss/float64(len(xs))) / mean
}
