package api

import (
	"github.com/MrWong99/speechcoach/internal/coach"
	"github.com/MrWong99/speechcoach/internal/persona"
)

type personaTargetsJSON struct {
	WPM              [2]float64 `json:"wpm"`
	MaxFillersPerMin float64    `json:"maxFillersPerMin"`
}

type personaJSON struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Targets     personaTargetsJSON `json:"targets"`
}

type personasResponse struct {
	Personas []personaJSON `json:"personas"`
}

func newPersonasResponse(ps []persona.Persona) personasResponse {
	out := personasResponse{Personas: make([]personaJSON, 0, len(ps))}
	for _, p := range ps {
		out.Personas = append(out.Personas, personaJSON{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Targets: personaTargetsJSON{
				WPM:              p.Targets.WPM,
				MaxFillersPerMin: p.Targets.MaxFillersPerMin,
			},
		})
	}
	return out
}

type analyzeRequest struct {
	PersonaID       string   `json:"personaId"`
	Transcript      string   `json:"transcript"`
	DurationSeconds *float64 `json:"durationSeconds"`
}

type metricsJSON struct {
	WPM           float64 `json:"wpm"`
	TotalWords    int     `json:"totalWords"`
	TotalFillers  int     `json:"totalFillers"`
	FillersPerMin float64 `json:"fillersPerMin"`
}

type dimensionsJSON struct {
	Pace          float64 `json:"pace"`
	Clarity       float64 `json:"clarity"`
	Confidence    float64 `json:"confidence"`
	FillerControl float64 `json:"fillerControl"`
}

type personaScoreJSON struct {
	Overall    float64        `json:"overall"`
	Dimensions dimensionsJSON `json:"dimensions"`
}

type scores10JSON struct {
	Confidence float64 `json:"confidence"`
	Clarity    float64 `json:"clarity"`
	Energy     float64 `json:"energy"`
	Structure  float64 `json:"structure"`
}

type coachingJSON struct {
	Summary         string       `json:"summary"`
	Tips            []string     `json:"tips"`
	Exercise        string       `json:"exercise"`
	PersonaScores10 scores10JSON `json:"personaScores10"`
}

type highlightJSON struct {
	WordIndex int    `json:"wordIndex"`
	Type      string `json:"type"`
}

type emotionSummaryJSON struct {
	MeanValence float64        `json:"meanValence"`
	Dominant    string         `json:"dominant"`
	Distinct    int            `json:"distinct"`
	Counts      map[string]int `json:"counts"`
}

type analyzeResponse struct {
	Metrics             metricsJSON         `json:"metrics"`
	PersonaScore        personaScoreJSON    `json:"personaScore"`
	Coaching            coachingJSON        `json:"coaching"`
	Highlights          []highlightJSON     `json:"highlights"`
	PerSentenceEmotions []string            `json:"perSentenceEmotions"`
	EmotionSummary      *emotionSummaryJSON `json:"emotionSummary,omitempty"`
	AttemptID           string              `json:"attemptId"`
	NeedsConfirmation   bool                `json:"needsConfirmation"`
	CoachingTextForTTS  string              `json:"coachingTextForTTS"`
}

func newAnalyzeResponse(r *coach.Result) analyzeResponse {
	d := r.Score.Dimensions
	c := r.Coaching
	out := analyzeResponse{
		Metrics: metricsJSON{
			WPM:           r.Metrics.WordsPerMinute,
			TotalWords:    r.Metrics.TotalWords,
			TotalFillers:  r.Metrics.FillerCount,
			FillersPerMin: r.Metrics.FillersPerMinute,
		},
		PersonaScore: personaScoreJSON{
			Overall: r.Score.Overall,
			Dimensions: dimensionsJSON{
				Pace:          d.Pace,
				Clarity:       d.Clarity,
				Confidence:    d.Confidence,
				FillerControl: d.FillerControl,
			},
		},
		Coaching: coachingJSON{
			Summary:  c.Summary,
			Tips:     c.Tips,
			Exercise: c.Exercise,
			PersonaScores10: scores10JSON{
				Confidence: c.Scores10.Confidence,
				Clarity:    c.Scores10.Clarity,
				Energy:     c.Scores10.Energy,
				Structure:  c.Scores10.Structure,
			},
		},
		Highlights:          make([]highlightJSON, 0, len(r.Highlights)),
		PerSentenceEmotions: r.Emotions,
		AttemptID:           r.AttemptID,
		NeedsConfirmation:   r.NeedsConfirmation,
		CoachingTextForTTS:  r.Narration,
	}
	if out.Coaching.Tips == nil {
		out.Coaching.Tips = []string{}
	}
	if out.PerSentenceEmotions == nil {
		out.PerSentenceEmotions = []string{}
	}
	for _, h := range r.Highlights {
		out.Highlights = append(out.Highlights, highlightJSON{WordIndex: h.WordIndex, Type: string(h.Type)})
	}
	if r.HasEmotionSummary {
		s := r.EmotionSummary
		out.EmotionSummary = &emotionSummaryJSON{
			MeanValence: s.MeanValence,
			Dominant:    s.Dominant,
			Distinct:    s.Distinct,
			Counts:      s.Counts,
		}
	}
	return out
}

type confirmRequest struct {
	AttemptID string `json:"attemptId"`
	PersonaID string `json:"personaId"`
}

type confirmResponse struct {
	AudioURL string `json:"audioUrl"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}
