// Package sessionlog keeps an append-only record of analysed attempts.
//
// Each analyze call appends one JSON line to a local file. The log is meant
// for offline review of how speakers progress across attempts, not as a
// query store; the attempt archive covers that.
package sessionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
)

// Record is one line of the session log.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	AttemptID       string    `json:"attemptId"`
	PersonaID       string    `json:"personaId"`
	WPM             float64   `json:"wpm"`
	TotalWords      int       `json:"totalWords"`
	TotalFillers    int       `json:"totalFillers"`
	FillersPerMin   float64   `json:"fillersPerMin"`
	Overall         float64   `json:"overall"`
	Pace            float64   `json:"pace"`
	Clarity         float64   `json:"clarity"`
	Confidence      float64   `json:"confidence"`
	FillerControl   float64   `json:"fillerControl"`
	CoachingSource  string    `json:"coachingSource,omitempty"`
	DominantEmotion string    `json:"dominantEmotion,omitempty"`
}

// NewRecord fills a Record from an attempt's analysis results.
func NewRecord(attemptID, personaID string, m speech.Metrics, s scoring.Score) Record {
	return Record{
		AttemptID:     attemptID,
		PersonaID:     personaID,
		WPM:           m.WordsPerMinute,
		TotalWords:    m.TotalWords,
		TotalFillers:  m.FillerCount,
		FillersPerMin: m.FillersPerMinute,
		Overall:       s.Overall,
		Pace:          s.Dimensions.Pace,
		Clarity:       s.Dimensions.Clarity,
		Confidence:    s.Dimensions.Confidence,
		FillerControl: s.Dimensions.FillerControl,
	}
}

// Logger appends session records.
type Logger interface {
	Append(ctx context.Context, r Record) error
}

// Nop discards every record. It is used when no log path is configured.
type Nop struct{}

// Append implements [Logger].
func (Nop) Append(context.Context, Record) error { return nil }

// FileStore persists records as JSON lines in a local file.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var (
	_ Logger = (*FileStore)(nil)
	_ Logger = Nop{}
)

// NewFileStore creates a FileStore that writes to path. The file and its
// parent directory are created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Open returns a [FileStore] for path, or [Nop] when path is empty.
func Open(path string) Logger {
	if path == "" {
		return Nop{}
	}
	return NewFileStore(path)
}

// Append writes r as one line. A zero Timestamp is set to the current UTC
// time.
func (fs *FileStore) Append(_ context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = fs.now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sessionlog: marshal: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sessionlog: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sessionlog: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("sessionlog: write: %w", err)
	}
	return nil
}

// Path returns the file the store appends to.
func (fs *FileStore) Path() string { return fs.path }
