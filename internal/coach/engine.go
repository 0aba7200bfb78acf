// Package coach orchestrates one coaching round trip.
//
// [Engine.Analyze] runs the pure pipeline (metrics, persona fit, highlights),
// drafts coaching and classifies sentence emotions concurrently, then records
// the attempt. [Engine.Confirm] resumes an attempt and returns its narration
// audio. Both collaborators used during analysis fall back to deterministic
// output, so Analyze only fails on bad input.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/coaching"
	"github.com/MrWong99/speechcoach/internal/emotion"
	"github.com/MrWong99/speechcoach/internal/highlight"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/resilience"
	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/sessionlog"
	"github.com/MrWong99/speechcoach/internal/speech"
	emotionprovider "github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

// DefaultClassifyTimeout bounds one emotion classification.
const DefaultClassifyTimeout = 5 * time.Second

// ErrInvalidRequest is returned for malformed analyze input other than a bad
// duration.
var ErrInvalidRequest = errors.New("coach: invalid request")

// AnalyzeRequest is the input of [Engine.Analyze].
type AnalyzeRequest struct {
	PersonaID  string
	Transcript string
	Seconds    float64
}

// Result is everything an analyze call produces.
type Result struct {
	AttemptID  string
	Persona    persona.Persona
	Metrics    speech.Metrics
	Score      scoring.Score
	Coaching   coaching.Draft
	Highlights []highlight.Highlight

	// Emotions holds one label per sentence.
	Emotions []string
	// EmotionSummary is valid when HasEmotionSummary is true.
	EmotionSummary    emotion.Summary
	HasEmotionSummary bool

	NeedsConfirmation bool
	Narration         string
}

// Engine wires the coaching components together. Safe for concurrent use.
type Engine struct {
	personas        *persona.Registry
	scorer          *scoring.Scorer
	gateway         *coaching.Gateway
	classifier      emotionprovider.Classifier
	classifierName  string
	classifyTimeout time.Duration
	attempts        *attempt.Manager
	sessions        sessionlog.Logger
	metrics         *observe.Metrics
}

// Option configures an [Engine].
type Option func(*Engine)

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithClassifier sets the emotion classifier. Without one every sentence is
// labelled neutral.
func WithClassifier(name string, c emotionprovider.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
		e.classifierName = name
	}
}

// WithClassifyTimeout bounds emotion classification.
func WithClassifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.classifyTimeout = d
		}
	}
}

// WithSessionLog appends one record per analyzed attempt to l.
func WithSessionLog(l sessionlog.Logger) Option {
	return func(e *Engine) { e.sessions = l }
}

// WithMetrics records analyze outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine.
func New(personas *persona.Registry, gateway *coaching.Gateway, attempts *attempt.Manager, opts ...Option) *Engine {
	e := &Engine{
		personas:        personas,
		scorer:          scoring.New(),
		gateway:         gateway,
		classifierName:  "emotion",
		classifyTimeout: DefaultClassifyTimeout,
		attempts:        attempts,
		sessions:        sessionlog.Nop{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Personas returns the registered personas in order.
func (e *Engine) Personas() []persona.Persona {
	return e.personas.List()
}

// Analyze scores a transcript against a persona, drafts coaching and records
// a new attempt. Errors wrap [speech.ErrInvalidDuration],
// [persona.ErrUnknownPersona] or [ErrInvalidRequest]; collaborator failures
// never fail the call.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "coach.Analyze")
	defer span.End()
	span.SetAttributes(observe.Persona(req.PersonaID))

	start := time.Now()
	res, err := e.analyze(ctx, req)
	if e.metrics != nil {
		e.metrics.RecordAnalyze(ctx, req.PersonaID, analyzeStatus(err), time.Since(start).Seconds())
	}
	if res != nil {
		span.SetAttributes(observe.Attempt(res.AttemptID))
	}
	observe.RecordError(span, err)
	return res, err
}

func (e *Engine) analyze(ctx context.Context, req AnalyzeRequest) (*Result, error) {
	if !(req.Seconds > 0) {
		return nil, fmt.Errorf("coach: analyze: %w", speech.ErrInvalidDuration)
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("coach: analyze: %w: transcript must not be empty", ErrInvalidRequest)
	}
	p, err := e.personas.Get(req.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("coach: analyze: %w", err)
	}

	a, err := speech.Extract(req.Transcript, req.Seconds)
	if err != nil {
		if errors.Is(err, speech.ErrInvalidDuration) {
			return nil, fmt.Errorf("coach: analyze: %w", err)
		}
		return nil, fmt.Errorf("coach: analyze: %w: %w", ErrInvalidRequest, err)
	}
	score := e.scorer.Score(a, p)
	highlights := highlight.Locate(a)

	sentences := a.SentenceTexts()
	var (
		draft  coaching.Draft
		labels []string
	)
	// Both calls degrade to fallbacks instead of failing, so neither one
	// cancels the other.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		draft = e.gateway.Draft(ctx, coaching.Request{
			Persona:    p,
			Transcript: req.Transcript,
			Metrics:    a.Metrics,
			Score:      score,
			Highlights: highlights,
		})
	}()
	go func() {
		defer wg.Done()
		labels = e.classify(ctx, sentences)
	}()
	wg.Wait()

	labels = emotion.Normalize(labels, len(sentences))
	summary, hasSummary := emotion.Aggregate(labels)

	att, err := e.attempts.Create(ctx, attempt.NewAttempt{
		PersonaID:  p.ID,
		Voice:      p.Voice,
		Transcript: req.Transcript,
		Seconds:    req.Seconds,
		Metrics:    a.Metrics,
		Score:      score,
		Coaching:   draft,
	})
	if err != nil {
		return nil, fmt.Errorf("coach: analyze: %w", err)
	}

	rec := sessionlog.NewRecord(att.ID, p.ID, a.Metrics, score)
	rec.CoachingSource = string(draft.Source)
	if hasSummary {
		rec.DominantEmotion = summary.Dominant
	}
	if err := e.sessions.Append(ctx, rec); err != nil {
		observe.Logger(ctx).Warn("session log append failed", "attempt_id", att.ID, "err", err)
	}

	observe.Logger(ctx).Info("speech analyzed",
		"attempt_id", att.ID,
		"persona_id", p.ID,
		"wpm", a.Metrics.WordsPerMinute,
		"fillers", a.Metrics.FillerCount,
		"overall", score.Overall,
		"coaching_source", draft.Source)

	return &Result{
		AttemptID:         att.ID,
		Persona:           p,
		Metrics:           a.Metrics,
		Score:             score,
		Coaching:          draft,
		Highlights:        highlights,
		Emotions:          labels,
		EmotionSummary:    summary,
		HasEmotionSummary: hasSummary,
		NeedsConfirmation: att.NeedsConfirmation,
		Narration:         att.Narration,
	}, nil
}

// classify labels sentences, falling back to neutral on any failure.
func (e *Engine) classify(ctx context.Context, sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}
	if e.classifier == nil {
		return emotionprovider.Fallback(len(sentences))
	}

	ctx, cancel := context.WithTimeout(ctx, e.classifyTimeout)
	defer cancel()

	start := time.Now()
	labels, err := e.classifier.Classify(ctx, sentences)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.RecordProviderRequest(ctx, e.classifierName, observe.KindEmotion, status, time.Since(start).Seconds())
	}
	if err != nil {
		observe.Logger(ctx).Warn("emotion classification failed, labelling neutral",
			"sentences", len(sentences),
			"err", resilience.Classify(ctx, err))
		return emotionprovider.Fallback(len(sentences))
	}
	return labels
}

// Confirm returns the narration audio URL for an attempt. Errors wrap
// [persona.ErrUnknownPersona], the attempt package's sentinels, or a
// classified collaborator error.
func (e *Engine) Confirm(ctx context.Context, attemptID, personaID string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "coach.Confirm")
	defer span.End()
	span.SetAttributes(observe.Attempt(attemptID), observe.Persona(personaID))

	url, err := e.confirm(ctx, attemptID, personaID)
	observe.RecordError(span, err)
	return url, err
}

func (e *Engine) confirm(ctx context.Context, attemptID, personaID string) (string, error) {
	if strings.TrimSpace(attemptID) == "" {
		return "", fmt.Errorf("coach: confirm: %w: attempt id must not be empty", ErrInvalidRequest)
	}
	if _, err := e.personas.Get(personaID); err != nil {
		return "", fmt.Errorf("coach: confirm: %w", err)
	}
	url, err := e.attempts.Confirm(ctx, attemptID, personaID)
	if err != nil {
		return "", fmt.Errorf("coach: confirm: %w", err)
	}
	return url, nil
}

func analyzeStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, speech.ErrInvalidDuration), errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, persona.ErrUnknownPersona):
		return "unknown_persona"
	default:
		return "error"
	}
}
