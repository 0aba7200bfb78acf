package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Collaborator failure kinds reported to clients.
var (
	// ErrCollaboratorTimeout marks a collaborator call that exceeded its
	// deadline.
	ErrCollaboratorTimeout = errors.New("collaborator timed out")

	// ErrCollaboratorError marks any other collaborator failure, including an
	// open circuit breaker.
	ErrCollaboratorError = errors.New("collaborator failed")
)

// Classify wraps err with [ErrCollaboratorTimeout] or [ErrCollaboratorError].
// A deadline on either err or ctx counts as a timeout. Errors that are already
// classified are returned unchanged; nil stays nil.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCollaboratorTimeout) || errors.Is(err, ErrCollaboratorError) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCollaboratorTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCollaboratorError, err)
}

// IsTimeout reports whether err was classified, or would be classified, as a
// collaborator timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrCollaboratorTimeout) || errors.Is(err, context.DeadlineExceeded)
}
