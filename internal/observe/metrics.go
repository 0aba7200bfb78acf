// Package observe provides the observability primitives of the coaching
// engine: OpenTelemetry metrics, tracing, a trace-aware slog logger and the
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported via
// the Prometheus bridge set up by [InitProvider], so they can be scraped from
// /metrics. [DefaultMetrics] returns a package-level instance; tests should
// use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/speechcoach"

// Collaborator kinds used as the "kind" attribute.
const (
	KindLLM     = "llm"
	KindTTS     = "tts"
	KindEmotion = "emotion"
)

// Metrics holds all OpenTelemetry instruments of the engine. All fields are
// safe for concurrent use.
type Metrics struct {
	// --- Collaborator latency ---

	// LLMDuration tracks coaching completion latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks narration synthesis latency.
	TTSDuration metric.Float64Histogram

	// EmotionDuration tracks per-attempt emotion classification latency.
	EmotionDuration metric.Float64Histogram

	// AnalyzeDuration tracks the whole analyze operation, collaborators included.
	AnalyzeDuration metric.Float64Histogram

	// --- Counters ---

	// AnalyzeRequests counts analyze calls. Attributes: persona, status.
	AnalyzeRequests metric.Int64Counter

	// CoachingDrafts counts coaching drafts. Attributes: source (llm|fallback),
	// reason (empty for llm drafts).
	CoachingDrafts metric.Int64Counter

	// ProviderRequests counts collaborator calls. Attributes: provider, kind,
	// status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts collaborator failures. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// AttemptTransitions counts attempt lifecycle transitions. Attributes:
	// from, to.
	AttemptTransitions metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	// name, to.
	BreakerTransitions metric.Int64Counter

	// --- Gauges ---

	// StoredAttempts tracks the number of attempts held in memory.
	StoredAttempts metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets (seconds) cover fast local scoring up to slow LLM replies.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.LLMDuration, "speechcoach.llm.duration", "Latency of coaching completions."},
		{&met.TTSDuration, "speechcoach.tts.duration", "Latency of narration synthesis."},
		{&met.EmotionDuration, "speechcoach.emotion.duration", "Latency of emotion classification."},
		{&met.AnalyzeDuration, "speechcoach.analyze.duration", "Latency of a full analyze call."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.AnalyzeRequests, "speechcoach.analyze.requests", "Analyze calls by persona and status."},
		{&met.CoachingDrafts, "speechcoach.coaching.drafts", "Coaching drafts by source and fallback reason."},
		{&met.ProviderRequests, "speechcoach.provider.requests", "Collaborator calls by provider, kind and status."},
		{&met.ProviderErrors, "speechcoach.provider.errors", "Collaborator failures by provider and kind."},
		{&met.AttemptTransitions, "speechcoach.attempt.transitions", "Attempt lifecycle transitions."},
		{&met.BreakerTransitions, "speechcoach.breaker.transitions", "Circuit breaker state changes."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.StoredAttempts, err = m.Int64UpDownCounter("speechcoach.attempts.stored",
		metric.WithDescription("Attempts currently held in memory."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("speechcoach.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Call it after [InitProvider] so the
// instruments bind to the exporting provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records one collaborator call with its latency.
// status is "ok" or "error"; errors are also counted in ProviderErrors.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	)
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	if status != "ok" {
		m.ProviderErrors.Add(ctx, 1, attrs)
	}

	switch kind {
	case KindLLM:
		m.LLMDuration.Record(ctx, seconds, attrs)
	case KindTTS:
		m.TTSDuration.Record(ctx, seconds, attrs)
	case KindEmotion:
		m.EmotionDuration.Record(ctx, seconds, attrs)
	}
}

// RecordCoachingDraft counts a coaching draft by source and fallback reason.
func (m *Metrics) RecordCoachingDraft(ctx context.Context, source, reason string) {
	m.CoachingDrafts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

// RecordAnalyze records one analyze call.
func (m *Metrics) RecordAnalyze(ctx context.Context, personaID, status string, seconds float64) {
	m.AnalyzeRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("persona", personaID),
		attribute.String("status", status),
	))
	m.AnalyzeDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordAttemptTransition counts a lifecycle transition.
func (m *Metrics) RecordAttemptTransition(ctx context.Context, from, to string) {
	m.AttemptTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("to", to),
	))
}
