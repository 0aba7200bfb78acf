// Package attempt owns the lifecycle of coaching attempts.
//
// An attempt is created by an analyze call and either waits for the user to
// confirm narration (PendingConfirmation) or is final right away (Finalized).
// Confirming synthesizes the narration exactly once and caches the resulting
// audio URL. Attempts that are not confirmed within the TTL expire; a
// background sweep releases their text and eventually removes them.
//
//	Created ─┬─> PendingConfirmation ─┬─> Confirmed
//	         │                        └─> Expired
//	         └─> Finalized ───────────────> Expired
package attempt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrWong99/speechcoach/internal/coaching"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
)

var (
	// ErrNotFound is returned for unknown or already removed attempt ids.
	ErrNotFound = errors.New("attempt: not found")

	// ErrPersonaMismatch is returned when a confirm names a different persona
	// than the one the attempt was analyzed against.
	ErrPersonaMismatch = errors.New("attempt: persona does not match")

	// ErrExpired is returned when the attempt's confirmation window has closed.
	ErrExpired = errors.New("attempt: expired")

	// ErrNotConfirmable is returned for attempts without narration to
	// synthesize.
	ErrNotConfirmable = errors.New("attempt: nothing to narrate")
)

// State is a lifecycle state.
type State string

const (
	StateCreated             State = "created"
	StatePendingConfirmation State = "pending_confirmation"
	StateFinalized           State = "finalized"
	StateConfirmed           State = "confirmed"
	StateExpired             State = "expired"
)

// Attempt is one analyzed speech attempt.
type Attempt struct {
	ID         string
	PersonaID  string
	Transcript string
	Seconds    float64

	Metrics  speech.Metrics
	Score    scoring.Score
	Coaching coaching.Draft

	// Narration is the text synthesized on confirmation.
	Narration string
	// Voice is the persona's narration voice, captured at creation.
	Voice persona.VoiceConfig

	NeedsConfirmation bool
	State             State

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	// AudioURL is set at most once, on the transition to Confirmed.
	AudioURL string
}

func (a Attempt) clone() Attempt {
	a.Coaching.Tips = append([]string(nil), a.Coaching.Tips...)
	if a.ConfirmedAt != nil {
		t := *a.ConfirmedAt
		a.ConfirmedAt = &t
	}
	return a
}

// NewAttempt is the input to [Manager.Create].
type NewAttempt struct {
	PersonaID  string
	Voice      persona.VoiceConfig
	Transcript string
	Seconds    float64
	Metrics    speech.Metrics
	Score      scoring.Score
	Coaching   coaching.Draft
}

// ConfirmationPolicy decides whether a new attempt waits for confirmation.
type ConfirmationPolicy interface {
	NeedsConfirmation(a *Attempt) bool
}

// NarrationPolicy asks for confirmation whenever there is narration to
// synthesize. It is the default.
type NarrationPolicy struct{}

func (NarrationPolicy) NeedsConfirmation(a *Attempt) bool {
	return strings.TrimSpace(a.Narration) != ""
}

// AlwaysPolicy asks for confirmation on every attempt.
type AlwaysPolicy struct{}

func (AlwaysPolicy) NeedsConfirmation(*Attempt) bool { return true }

// NeverPolicy finalizes every attempt immediately.
type NeverPolicy struct{}

func (NeverPolicy) NeedsConfirmation(*Attempt) bool { return false }

// NarrationRequest is what the [Narrator] is asked to synthesize.
type NarrationRequest struct {
	AttemptID string
	PersonaID string
	Text      string
	Voice     persona.VoiceConfig
}

// Narrator synthesizes narration and returns a URL the client can play.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (audioURL string, err error)
}

// NarratorFunc adapts a function to [Narrator].
type NarratorFunc func(ctx context.Context, req NarrationRequest) (string, error)

func (f NarratorFunc) Narrate(ctx context.Context, req NarrationRequest) (string, error) {
	return f(ctx, req)
}

// Archiver persists attempts before they are released from memory.
type Archiver interface {
	Archive(ctx context.Context, a Attempt) error
}
