// Package coaching turns a scored attempt into human-readable coaching.
//
// The [Gateway] asks an LLM for a strict-JSON draft and validates the reply.
// When the call fails or the reply does not validate, the gateway returns the
// deterministic draft built by [Fallback] instead, so [Gateway.Draft] never
// fails.
package coaching

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrWong99/speechcoach/internal/highlight"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/resilience"
	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
)

// Source tells where a [Draft] came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Fallback reasons, recorded on the draft and in metrics.
const (
	ReasonNoProvider    = "no_provider"
	ReasonTimeout       = "timeout"
	ReasonProviderError = "provider_error"
	ReasonNoJSON        = "no_json"
	ReasonInvalidReply  = "invalid_reply"
)

// Defaults for [New].
const (
	DefaultTimeout     = 8 * time.Second
	DefaultTemperature = 0.4
	DefaultMaxTokens   = 800
)

// Scores10 are the coaching scores on a 0..10 scale.
type Scores10 struct {
	Confidence float64 `json:"confidence"`
	Clarity    float64 `json:"clarity"`
	Energy     float64 `json:"energy"`
	Structure  float64 `json:"structure"`
}

// Draft is the coaching content for one attempt.
type Draft struct {
	Summary  string
	Tips     []string
	Exercise string
	Scores10 Scores10

	// Narration is the text read aloud on confirmation.
	Narration string

	Source Source
	// Reason is set for fallback drafts only.
	Reason string
}

// Request carries everything the gateway needs for one attempt.
type Request struct {
	Persona    persona.Persona
	Transcript string
	Metrics    speech.Metrics
	Score      scoring.Score
	Highlights []highlight.Highlight
}

// Gateway produces coaching drafts. Safe for concurrent use.
type Gateway struct {
	provider     llm.Provider
	providerName string
	timeout      time.Duration
	temperature  float64
	maxTokens    int
	metrics      *observe.Metrics
}

// Option configures a [Gateway].
type Option func(*Gateway)

// WithTimeout bounds the single LLM attempt. Default: [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Gateway) {
		g.temperature = t
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithProviderName labels the provider in logs and metrics.
func WithProviderName(name string) Option {
	return func(g *Gateway) {
		g.providerName = name
	}
}

// WithMetrics records provider calls and draft sources on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New creates a Gateway. A nil provider is allowed: every draft is then a
// fallback draft.
func New(p llm.Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider:     p,
		providerName: "llm",
		timeout:      DefaultTimeout,
		temperature:  DefaultTemperature,
		maxTokens:    DefaultMaxTokens,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Draft returns coaching for req. It makes at most one LLM call, bounded by
// the configured timeout, and falls back to [Fallback] on any failure.
func (g *Gateway) Draft(ctx context.Context, req Request) Draft {
	d, reason, err := g.draftFromLLM(ctx, req)
	if err != nil {
		observe.Logger(ctx).Warn("coaching: using fallback draft",
			"persona_id", req.Persona.ID,
			"reason", reason,
			"err", err)
		d = Fallback(req.Persona, req.Metrics, req.Score, req.Highlights)
		d.Reason = reason
	}
	if g.metrics != nil {
		g.metrics.RecordCoachingDraft(ctx, string(d.Source), d.Reason)
	}
	return d
}

func (g *Gateway) draftFromLLM(ctx context.Context, req Request) (Draft, string, error) {
	if g.provider == nil {
		return Draft{}, ReasonNoProvider, errors.New("coaching: no llm provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: buildPrompt(req)}},
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		JSONMode:     true,
	})
	if err == nil && resp == nil {
		err = errors.New("coaching: provider returned no response")
	}
	g.recordCall(ctx, err, time.Since(start))
	if err != nil {
		err = resilience.Classify(ctx, err)
		if resilience.IsTimeout(err) {
			return Draft{}, ReasonTimeout, err
		}
		return Draft{}, ReasonProviderError, err
	}

	d, err := parseReply(resp.Content)
	if err != nil {
		if errors.Is(err, errNoJSON) {
			return Draft{}, ReasonNoJSON, err
		}
		return Draft{}, ReasonInvalidReply, err
	}
	return d, "", nil
}

func (g *Gateway) recordCall(ctx context.Context, err error, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	g.metrics.RecordProviderRequest(ctx, g.providerName, observe.KindLLM, status, elapsed.Seconds())
}

// ComposeNarration builds the spoken text from a summary and its tips:
// "summary - tip1 tip2 ...". Without tips it is just the summary.
func ComposeNarration(summary string, tips []string) string {
	summary = strings.TrimSpace(summary)
	joined := strings.TrimSpace(strings.Join(tips, " "))
	if joined == "" {
		return summary
	}
	return strings.TrimSpace(summary + " - " + joined)
}
