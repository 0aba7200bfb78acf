// Package mock provides a test double for the emotion.Classifier interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

// ClassifyCall records a single invocation of Classify.
type ClassifyCall struct {
	Ctx       context.Context
	Sentences []string
}

// Classifier is a mock implementation of emotion.Classifier.
type Classifier struct {
	mu sync.Mutex

	// Labels is returned by Classify when Err is nil.
	Labels []string

	// Err, if non-nil, is returned as the error from Classify.
	Err error

	// ClassifyFunc, if set, replaces Labels/Err.
	ClassifyFunc func(ctx context.Context, sentences []string) ([]string, error)

	// ClassifyCalls records every call to Classify in order.
	ClassifyCalls []ClassifyCall
}

var _ emotion.Classifier = (*Classifier)(nil)

// Classify records the call and returns the configured outcome.
func (c *Classifier) Classify(ctx context.Context, sentences []string) ([]string, error) {
	c.mu.Lock()
	c.ClassifyCalls = append(c.ClassifyCalls, ClassifyCall{Ctx: ctx, Sentences: append([]string(nil), sentences...)})
	fn, labels, err := c.ClassifyFunc, c.Labels, c.Err
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, sentences)
	}
	if err != nil {
		return nil, err
	}
	return append([]string(nil), labels...), nil
}

// Calls returns a snapshot of the recorded calls.
func (c *Classifier) Calls() []ClassifyCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ClassifyCall(nil), c.ClassifyCalls...)
}
