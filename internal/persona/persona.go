// Package persona holds the speaking-style targets users are coached against.
//
// Personas are reference data: they are loaded once at startup (from the
// built-in set or a YAML file), validated, and never mutated afterwards. The
// Registry is passed explicitly to the components that need it.
package persona

import (
	"errors"
	"fmt"
)

// Targets are the measurable goals of a persona.
type Targets struct {
	// WPM is the inclusive words-per-minute band [lo, hi].
	WPM [2]float64 `yaml:"wpm"`

	// MaxFillersPerMin is the highest tolerated filler rate.
	MaxFillersPerMin float64 `yaml:"max_fillers_per_min"`
}

// VoiceConfig selects the narration voice for a persona.
type VoiceConfig struct {
	// ID is the TTS provider's voice identifier.
	ID string `yaml:"id"`

	// Style is an optional provider-specific speaking style.
	Style string `yaml:"style"`

	// Speed adjusts the speaking rate (1.0 = default, 0 = provider default).
	Speed float64 `yaml:"speed"`
}

// Persona is a named speaking-style target.
type Persona struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Targets     Targets     `yaml:"targets"`
	Voice       VoiceConfig `yaml:"voice"`
}

// Low returns the lower edge of the WPM band.
func (p Persona) Low() float64 { return p.Targets.WPM[0] }

// High returns the upper edge of the WPM band.
func (p Persona) High() float64 { return p.Targets.WPM[1] }

// Validate checks the persona's invariants and returns all violations joined.
func (p Persona) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if p.Name == "" {
		errs = append(errs, fmt.Errorf("persona %q: name must not be empty", p.ID))
	}
	lo, hi := p.Low(), p.High()
	if lo <= 0 || hi <= 0 {
		errs = append(errs, fmt.Errorf("persona %q: wpm band must be positive, got [%g, %g]", p.ID, lo, hi))
	}
	if lo > hi {
		errs = append(errs, fmt.Errorf("persona %q: wpm band lower edge %g exceeds upper edge %g", p.ID, lo, hi))
	}
	if p.Targets.MaxFillersPerMin < 0 {
		errs = append(errs, fmt.Errorf("persona %q: max_fillers_per_min must not be negative", p.ID))
	}
	return errors.Join(errs...)
}

// Defaults returns the built-in personas.
func Defaults() []Persona {
	return []Persona{
		{
			ID:          "ted",
			Name:        "TED Speaker",
			Description: "Inspiring, story-driven, calm but energetic.",
			Targets:     Targets{WPM: [2]float64{140, 170}, MaxFillersPerMin: 3},
			Voice:       VoiceConfig{ID: "en-US-natalie"},
		},
		{
			ID:          "leader",
			Name:        "Confident Leader",
			Description: "Authoritative, concise, decisive.",
			Targets:     Targets{WPM: [2]float64{130, 160}, MaxFillersPerMin: 2},
			Voice:       VoiceConfig{ID: "en-US-marcus"},
		},
		{
			ID:          "teacher",
			Name:        "Engaging Teacher",
			Description: "Clear, patient, explanatory with measured pacing.",
			Targets:     Targets{WPM: [2]float64{110, 140}, MaxFillersPerMin: 2},
			Voice:       VoiceConfig{ID: "en-UK-hazel"},
		},
	}
}
