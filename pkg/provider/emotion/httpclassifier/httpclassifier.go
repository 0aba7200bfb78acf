// Package httpclassifier implements emotion.Classifier against a text emotion
// detection service exposing POST /detect.
//
// The service takes {"text": "..."} and answers with a score per label plus a
// dominant label:
//
//	{"emotions":[{"label":"joy","score":0.91}, ...], "dominant_emotion":"joy"}
//
// Each sentence is a separate request; up to a configurable number of requests
// run in parallel.
package httpclassifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

var _ emotion.Classifier = (*Client)(nil)

const (
	detectPath         = "/detect"
	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Second
)

type detectRequest struct {
	Text string `json:"text"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type detectResponse struct {
	Emotions        []labelScore `json:"emotions"`
	DominantEmotion string       `json:"dominant_emotion"`
}

// Option configures a Client.
type Option func(*Client)

// WithConcurrency bounds the number of in-flight /detect requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client classifies sentences through a remote /detect endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
}

// New creates a Client for the service at baseURL (e.g. "http://localhost:8001").
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("httpclassifier: baseURL must not be empty")
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Classify implements emotion.Classifier. Blank sentences are labelled
// neutral without a request. Any failed request fails the whole call.
func (c *Client) Classify(ctx context.Context, sentences []string) ([]string, error) {
	labels := make([]string, len(sentences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, s := range sentences {
		if strings.TrimSpace(s) == "" {
			labels[i] = emotion.Neutral
			continue
		}
		g.Go(func() error {
			label, err := c.detect(gctx, s)
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i, err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("httpclassifier: classify: %w", ctxErr)
		}
		return nil, fmt.Errorf("httpclassifier: classify: %w", err)
	}
	return labels, nil
}

func (c *Client) detect(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("detect %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("detect decode: %w", err)
	}
	return pickLabel(out), nil
}

// pickLabel prefers the service's dominant label and otherwise takes the
// highest scoring entry. An empty reply is neutral.
func pickLabel(r detectResponse) string {
	if l := strings.TrimSpace(r.DominantEmotion); l != "" {
		return strings.ToLower(l)
	}
	best := labelScore{Score: -1}
	for _, e := range r.Emotions {
		if e.Score > best.Score {
			best = e
		}
	}
	if best.Label == "" {
		return emotion.Neutral
	}
	return strings.ToLower(best.Label)
}
