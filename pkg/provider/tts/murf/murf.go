// Package murf provides a TTS provider backed by the Murf speech generation
// REST API. Murf renders the audio on its side and returns a link to the
// hosted file, so results carry a URL rather than inline audio.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL  = "https://api.murf.ai"
	generatePath    = "/v1/speech/generate"
	defaultFormat   = "MP3"
	defaultTimeout  = 30 * time.Second
	maxErrBodyBytes = 4 << 10
)

// Option is a functional option for configuring a Murf Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL (default https://api.murf.ai).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithFormat sets the requested audio format ("MP3", "WAV", ...).
func WithFormat(format string) Option {
	return func(p *Provider) {
		p.format = strings.ToUpper(format)
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider using Murf's generate endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	format     string
	httpClient *http.Client
}

// New creates a Murf provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("murf: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		format:     defaultFormat,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// generateRequest is the JSON body of POST /v1/speech/generate.
type generateRequest struct {
	VoiceID string `json:"voiceId"`
	Text    string `json:"text"`
	Format  string `json:"format"`
	Style   string `json:"style,omitempty"`
	Rate    int    `json:"rate,omitempty"`
}

// generateResponse holds the fields we read from Murf's reply. Older API
// revisions used audioUrl instead of audioFile.
type generateResponse struct {
	AudioFile string `json:"audioFile"`
	AudioURL  string `json:"audioUrl"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("murf: text must not be empty")
	}
	if voice.ID == "" {
		return nil, errors.New("murf: voice.ID must not be empty")
	}

	body, err := json.Marshal(buildRequest(text, voice, p.format))
	if err != nil {
		return nil, fmt.Errorf("murf: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("murf: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("murf: generate: %w", ctxErr)
		}
		return nil, fmt.Errorf("murf: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return nil, fmt.Errorf("murf: generate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("murf: decode response: %w", err)
	}
	audioURL := gr.AudioFile
	if audioURL == "" {
		audioURL = gr.AudioURL
	}
	if audioURL == "" {
		return nil, errors.New("murf: response contained no audio link")
	}
	return &tts.Result{URL: audioURL, ContentType: contentType(p.format)}, nil
}

// buildRequest maps a voice profile onto Murf's request shape. SpeedFactor
// 1.0 is Murf rate 0; each 0.01 above or below moves the rate by one, clamped
// to Murf's accepted range of -50..50.
func buildRequest(text string, voice tts.VoiceProfile, format string) generateRequest {
	r := generateRequest{
		VoiceID: voice.ID,
		Text:    text,
		Format:  format,
		Style:   voice.Metadata["style"],
	}
	if voice.SpeedFactor > 0 {
		rate := int(math.Round((voice.SpeedFactor - 1) * 100))
		r.Rate = max(-50, min(50, rate))
	}
	return r
}

func contentType(format string) string {
	switch format {
	case "WAV":
		return "audio/wav"
	case "OGG":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}
