package resilience

import (
	"context"

	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with failover across synthesizers,
// each behind its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional synthesizer. Voice IDs are passed
// through unchanged, so a fallback must accept the primary's voice IDs or
// ignore them.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize renders text with the first healthy synthesizer.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Result, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) (*tts.Result, error) {
		return p.Synthesize(ctx, text, voice)
	})
}
