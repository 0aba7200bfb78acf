// Package audiostore holds synthesized narration audio for providers that
// return bytes instead of a hosted URL. The HTTP layer serves stored objects
// under /audio/{key}.
package audiostore

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("audiostore: object not found")

// ErrInvalidKey is returned when a key contains characters outside [A-Za-z0-9._-].
var ErrInvalidKey = errors.New("audiostore: invalid key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether key is safe to use as an object name and URL path segment.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Object is a stored audio clip.
type Object struct {
	Data        []byte
	ContentType string
}

// Store persists audio clips by key. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the object stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)
}
