package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/pkg/audiostore"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

// AudioPath is the route prefix under which stored narration is served.
const AudioPath = "/audio/"

// TTSNarrator implements [attempt.Narrator] on top of a [tts.Provider].
// Hosted results are passed through; byte results are written to the audio
// store and addressed under the public base URL.
type TTSNarrator struct {
	provider     tts.Provider
	providerName string
	store        audiostore.Store
	baseURL      string
	metrics      *observe.Metrics
}

var _ attempt.Narrator = (*TTSNarrator)(nil)

// NarratorOption configures a [TTSNarrator].
type NarratorOption func(*TTSNarrator)

// WithProviderName labels the synthesizer in logs and metrics.
func WithProviderName(name string) NarratorOption {
	return func(n *TTSNarrator) { n.providerName = name }
}

// WithNarratorMetrics records synthesis latency on m.
func WithNarratorMetrics(m *observe.Metrics) NarratorOption {
	return func(n *TTSNarrator) { n.metrics = m }
}

// NewTTSNarrator creates a narrator. store may be nil when the provider only
// returns hosted URLs. baseURL is the externally reachable origin of this
// service, e.g. "https://coach.example.com".
func NewTTSNarrator(p tts.Provider, store audiostore.Store, baseURL string, opts ...NarratorOption) *TTSNarrator {
	n := &TTSNarrator{
		provider:     p,
		providerName: "tts",
		store:        store,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Narrate synthesizes req.Text with the persona's voice and returns a URL
// for the audio.
func (n *TTSNarrator) Narrate(ctx context.Context, req attempt.NarrationRequest) (string, error) {
	voice := tts.VoiceProfile{
		ID:          req.Voice.ID,
		Name:        req.PersonaID,
		SpeedFactor: req.Voice.Speed,
	}
	if req.Voice.Style != "" {
		voice.Metadata = map[string]string{"style": req.Voice.Style}
	}

	start := time.Now()
	res, err := n.provider.Synthesize(ctx, req.Text, voice)
	if err == nil && res == nil {
		err = errors.New("synthesizer returned no result")
	}
	n.record(ctx, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("narrator: synthesize: %w", err)
	}

	if res.Hosted() {
		return res.URL, nil
	}
	if len(res.Audio) == 0 {
		return "", errors.New("narrator: synthesizer returned neither url nor audio")
	}
	if n.store == nil {
		return "", errors.New("narrator: audio bytes returned but no audio store configured")
	}

	key := req.AttemptID + "." + res.Extension()
	if err := n.store.Put(ctx, key, res.Audio, res.ContentType); err != nil {
		return "", fmt.Errorf("narrator: store audio: %w", err)
	}
	return n.baseURL + AudioPath + key, nil
}

func (n *TTSNarrator) record(ctx context.Context, err error, elapsed time.Duration) {
	if n.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	n.metrics.RecordProviderRequest(ctx, n.providerName, observe.KindTTS, status, elapsed.Seconds())
}
