// Package llmclassifier implements emotion.Classifier by asking a generative
// text model to label all sentences of a transcript in a single completion.
package llmclassifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
)

var _ emotion.Classifier = (*Classifier)(nil)

// Vocabulary is the label set the model is asked to choose from.
var Vocabulary = []string{
	"joy", "excitement", "confident", "calm", "neutral", "surprise",
	"nervous", "fear", "sadness", "anger", "disgust", "confusion",
}

const systemPrompt = `You label the emotional tone of spoken sentences.
Answer with a single JSON object of the form {"labels": ["...", ...]} containing exactly one label per input sentence, in order.
Use only these labels: %s.`

// Classifier labels sentences through an llm.Provider.
type Classifier struct {
	provider llm.Provider
}

// New wraps provider as an emotion classifier.
func New(provider llm.Provider) (*Classifier, error) {
	if provider == nil {
		return nil, errors.New("llmclassifier: provider must not be nil")
	}
	return &Classifier{provider: provider}, nil
}

type labelsReply struct {
	Labels []string `json:"labels"`
}

// Classify implements emotion.Classifier.
func (c *Classifier) Classify(ctx context.Context, sentences []string) ([]string, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(systemPrompt, strings.Join(Vocabulary, ", ")),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: numbered(sentences)}},
		Temperature:  0,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("llmclassifier: complete: %w", err)
	}
	if resp == nil {
		return nil, errors.New("llmclassifier: empty response")
	}

	raw, ok := llm.ExtractJSONObject(resp.Content)
	if !ok {
		return nil, errors.New("llmclassifier: reply contained no JSON object")
	}
	var reply labelsReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("llmclassifier: decode reply: %w", err)
	}

	labels := make([]string, len(reply.Labels))
	for i, l := range reply.Labels {
		labels[i] = strings.ToLower(strings.TrimSpace(l))
		if labels[i] == "" {
			labels[i] = emotion.Neutral
		}
	}
	return labels, nil
}

func numbered(sentences []string) string {
	var b strings.Builder
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(s))
	}
	return b.String()
}
