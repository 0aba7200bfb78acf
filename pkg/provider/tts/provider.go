// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider turns a finished piece of coaching narration into playable
// audio. Some services host the rendered file themselves and hand back a URL
// (Murf); others return the encoded audio directly (ElevenLabs, Coqui), in which
// case the caller stores the bytes and serves them itself.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile describes the voice a narration is rendered with.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier (e.g. "en-US-natalie").
	ID string

	// Name is the human-readable voice name.
	Name string

	// SpeedFactor adjusts speaking rate (0.5–2.0, 1.0 = default, 0 = provider default).
	SpeedFactor float64

	// Metadata holds provider-specific voice attributes (style, locale, etc.).
	Metadata map[string]string
}

// Result is the outcome of a synthesis call. Exactly one of URL or Audio is set.
type Result struct {
	// URL points at audio hosted by the provider.
	URL string

	// Audio holds the encoded audio when the provider returns it inline.
	Audio []byte

	// ContentType is the MIME type of Audio (e.g. "audio/mpeg", "audio/wav").
	ContentType string
}

// Hosted reports whether the provider returned a ready-to-use URL.
func (r *Result) Hosted() bool {
	return r != nil && r.URL != ""
}

// Extension returns the file extension matching ContentType, without the dot.
// Unknown types map to "bin".
func (r *Result) Extension() string {
	switch r.ContentType {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/pcm", "audio/L16":
		return "pcm"
	default:
		return "bin"
	}
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text with the given voice. It blocks until the audio
	// is fully available or ctx is done.
	//
	// An empty text or voice ID is an error. Errors caused by ctx expiring must
	// wrap ctx.Err() so callers can tell timeouts from service failures.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Result, error)
}
