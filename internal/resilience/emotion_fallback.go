package resilience

import (
	"context"

	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

// ClassifierFallback implements [emotion.Classifier] with failover across
// emotion backends, each behind its own circuit breaker.
type ClassifierFallback struct {
	group *FallbackGroup[emotion.Classifier]
}

var _ emotion.Classifier = (*ClassifierFallback)(nil)

// NewClassifierFallback creates a [ClassifierFallback] with primary as the
// preferred backend.
func NewClassifierFallback(primary emotion.Classifier, primaryName string, cfg FallbackConfig) *ClassifierFallback {
	return &ClassifierFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional classifier.
func (f *ClassifierFallback) AddFallback(name string, c emotion.Classifier) {
	f.group.AddFallback(name, c)
}

// Classify labels sentences with the first healthy classifier.
func (f *ClassifierFallback) Classify(ctx context.Context, sentences []string) ([]string, error) {
	return ExecuteWithResult(ctx, f.group, func(c emotion.Classifier) ([]string, error) {
		return c.Classify(ctx, sentences)
	})
}
