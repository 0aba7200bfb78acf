package sessionlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
)

func readLines(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestFileStore_Append(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "sessions.jsonl")
	fs := NewFileStore(path)
	fixed := time.Date(2026, 5, 4, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	fs.now = func() time.Time { return fixed }

	r := NewRecord("a-1", "ted",
		speech.Metrics{WordsPerMinute: 150, TotalWords: 90, FillerCount: 3, FillersPerMinute: 5},
		scoring.Score{Overall: 0.75, Dimensions: scoring.Dimensions{Pace: 1, Clarity: 0.5, Confidence: 0.6, FillerControl: 0.8}})
	r.CoachingSource = "fallback"
	if err := fs.Append(context.Background(), r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := fs.Append(context.Background(), NewRecord("a-2", "leader", speech.Metrics{}, scoring.Score{})); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := readLines(t, path)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0].AttemptID != "a-1" || got[0].PersonaID != "ted" || got[0].WPM != 150 || got[0].FillerControl != 0.8 {
		t.Errorf("first record = %+v", got[0])
	}
	if !got[0].Timestamp.Equal(fixed) || got[0].Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v in UTC", got[0].Timestamp, fixed)
	}
	if got[1].AttemptID != "a-2" {
		t.Errorf("second record = %+v", got[1])
	}
}

func TestFileStore_JSONFieldNames(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := NewFileStore(path).Append(context.Background(), NewRecord("a-1", "ted", speech.Metrics{}, scoring.Score{})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"attemptId", "personaId", "timestamp", "wpm", "overall"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
}

func TestFileStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "s.jsonl")
	fs := NewFileStore(path)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewRecord("a", "ted", speech.Metrics{TotalWords: i}, scoring.Score{})
			if err := fs.Append(context.Background(), r); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := readLines(t, path); len(got) != 50 {
		t.Fatalf("got %d lines, want 50", len(got))
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	if _, ok := Open("").(Nop); !ok {
		t.Error("Open(\"\") should return Nop")
	}
	fs, ok := Open("x.jsonl").(*FileStore)
	if !ok || fs.Path() != "x.jsonl" {
		t.Errorf("Open(path) = %T", Open("x.jsonl"))
	}
	if err := (Nop{}).Append(context.Background(), Record{}); err != nil {
		t.Errorf("Nop.Append: %v", err)
	}
}

func TestFileStore_AppendError(t *testing.T) {
	t.Parallel()

	// A directory cannot be opened for appending.
	dir := t.TempDir()
	if err := NewFileStore(dir).Append(context.Background(), Record{}); err == nil {
		t.Fatal("expected error appending to a directory")
	}
}
