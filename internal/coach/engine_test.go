package coach

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/coaching"
	"github.com/MrWong99/speechcoach/internal/highlight"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/resilience"
	"github.com/MrWong99/speechcoach/internal/sessionlog"
	"github.com/MrWong99/speechcoach/internal/speech"
	"github.com/MrWong99/speechcoach/pkg/audiostore"
	emotionmock "github.com/MrWong99/speechcoach/pkg/provider/emotion/mock"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
	llmmock "github.com/MrWong99/speechcoach/pkg/provider/llm/mock"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
	ttsmock "github.com/MrWong99/speechcoach/pkg/provider/tts/mock"
)

// tedTranscript is 3 sentences of 30 words, each opening with "Um".
func tedTranscript() string {
	sentence := "Um " + strings.TrimSpace(strings.Repeat("ideas ", 29)) + "."
	return strings.Join([]string{sentence, sentence, sentence}, " ")
}

// recordingLog collects session records in memory.
type recordingLog struct {
	mu      sync.Mutex
	records []sessionlog.Record
}

func (l *recordingLog) Append(_ context.Context, r sessionlog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

func (l *recordingLog) Records() []sessionlog.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sessionlog.Record(nil), l.records...)
}

type fixture struct {
	engine     *Engine
	llm        *llmmock.Provider
	classifier *emotionmock.Classifier
	tts        *ttsmock.Provider
	audio      *audiostore.MemStore
	log        *recordingLog
	manager    *attempt.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := persona.NewRegistry(persona.Defaults())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	f := &fixture{
		llm:        &llmmock.Provider{CompleteErr: errors.New("gemini: unavailable")},
		classifier: &emotionmock.Classifier{Labels: []string{"calm", "Joy", "calm"}},
		tts:        &ttsmock.Provider{Result: &tts.Result{URL: "https://murf.example/a.mp3"}},
		audio:      audiostore.NewMemStore(0),
		log:        &recordingLog{},
	}
	narrator := NewTTSNarrator(f.tts, f.audio, "http://localhost:8080/")
	f.manager = attempt.NewManager(narrator)
	f.engine = New(reg, coaching.New(f.llm), f.manager,
		WithClassifier("mock", f.classifier),
		WithSessionLog(f.log))
	return f
}

func TestEngine_AnalyzeTedScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.engine.Analyze(context.Background(), AnalyzeRequest{
		PersonaID:  "ted",
		Transcript: tedTranscript(),
		Seconds:   36,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	m := res.Metrics
	if m.WordsPerMinute != 150 || m.TotalWords != 90 || m.FillerCount != 3 || m.FillersPerMinute != 5 {
		t.Errorf("metrics = %+v", m)
	}
	if res.Score.Dimensions.Pace != 1 || res.Score.Dimensions.FillerControl != 0 {
		t.Errorf("dimensions = %+v, want pace 1 and fillerControl 0", res.Score.Dimensions)
	}

	want := []highlight.Highlight{
		{WordIndex: 0, Type: highlight.Filler},
		{WordIndex: 30, Type: highlight.Filler},
		{WordIndex: 60, Type: highlight.Filler},
	}
	if len(res.Highlights) != len(want) {
		t.Fatalf("highlights = %v, want %v", res.Highlights, want)
	}
	for i := range want {
		if res.Highlights[i] != want[i] {
			t.Errorf("highlight[%d] = %v, want %v", i, res.Highlights[i], want[i])
		}
	}

	// The LLM is down, so coaching comes from the deterministic fallback.
	if res.Coaching.Source != coaching.SourceFallback || res.Coaching.Reason != coaching.ReasonProviderError {
		t.Errorf("coaching source/reason = %q/%q", res.Coaching.Source, res.Coaching.Reason)
	}
	if res.Coaching.Summary == "" || len(res.Coaching.Tips) == 0 || res.Coaching.Exercise == "" {
		t.Errorf("fallback coaching incomplete: %+v", res.Coaching)
	}

	if got := strings.Join(res.Emotions, ","); got != "calm,joy,calm" {
		t.Errorf("emotions = %q", got)
	}
	if !res.HasEmotionSummary || res.EmotionSummary.Dominant != "calm" || res.EmotionSummary.Distinct != 2 {
		t.Errorf("emotion summary = %+v", res.EmotionSummary)
	}

	if res.AttemptID == "" || !res.NeedsConfirmation || res.Narration == "" {
		t.Errorf("attempt fields = %q/%v/%q", res.AttemptID, res.NeedsConfirmation, res.Narration)
	}
	if f.manager.Len() != 1 {
		t.Errorf("stored attempts = %d, want 1", f.manager.Len())
	}

	recs := f.log.Records()
	if len(recs) != 1 || recs[0].AttemptID != res.AttemptID || recs[0].PersonaID != "ted" || recs[0].DominantEmotion != "calm" {
		t.Errorf("session log = %+v", recs)
	}

	calls := f.classifier.Calls()
	if len(calls) != 1 || len(calls[0].Sentences) != 3 {
		t.Errorf("classifier calls = %+v", calls)
	}
}

func TestEngine_AnalyzeUsesLLMDraft(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.llm.CompleteErr = nil
	f.llm.CompleteResponse = &llm.CompletionResponse{Content: `{
		"summary": "Great energy.",
		"tips": ["Cut the ums."],
		"exercise": "Record it again.",
		"personaScores10": {"confidence": 7, "clarity": 8, "energy": 9, "structure": 6},
		"narration": "Great energy. Cut the ums."
	}`}

	res, err := f.engine.Analyze(context.Background(), AnalyzeRequest{
		PersonaID:  "ted",
		Transcript: tedTranscript(),
		Seconds:   36,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Coaching.Source != coaching.SourceLLM || res.Narration != "Great energy. Cut the ums." {
		t.Errorf("coaching = %+v narration = %q", res.Coaching, res.Narration)
	}
}

func TestEngine_AnalyzeInputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     AnalyzeRequest
		wantErr error
	}{
		{
			name:    "zero duration",
			req:     AnalyzeRequest{PersonaID: "ted", Transcript: "Hello there.", Seconds: 0},
			wantErr: speech.ErrInvalidDuration,
		},
		{
			name:    "negative duration",
			req:     AnalyzeRequest{PersonaID: "ted", Transcript: "Hello there.", Seconds: -1},
			wantErr: speech.ErrInvalidDuration,
		},
		{
			name:    "unknown persona",
			req:     AnalyzeRequest{PersonaID: "tedd", Transcript: "Hello there.", Seconds: 1},
			wantErr: persona.ErrUnknownPersona,
		},
		{
			name:    "blank transcript",
			req:     AnalyzeRequest{PersonaID: "ted", Transcript: "   ", Seconds: 1},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "punctuation only",
			req:     AnalyzeRequest{PersonaID: "ted", Transcript: "... !!", Seconds: 1},
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if _, err := f.engine.Analyze(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if f.manager.Len() != 0 {
				t.Errorf("attempt created on invalid input")
			}
			if len(f.llm.Calls()) != 0 || len(f.classifier.Calls()) != 0 {
				t.Errorf("collaborators called on invalid input")
			}
		})
	}
}

func TestEngine_ClassifierFailureFallsBackToNeutral(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.classifier.Labels = nil
	f.classifier.Err = errors.New("edmo: connection refused")

	res, err := f.engine.Analyze(context.Background(), AnalyzeRequest{
		PersonaID:  "leader",
		Transcript: "First point. Second point.",
		Seconds:   2,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := strings.Join(res.Emotions, ","); got != "neutral,neutral" {
		t.Errorf("emotions = %q, want neutral per sentence", got)
	}
}

func TestEngine_ClassifierShortReplyIsPadded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.classifier.Labels = []string{"nervous"}

	res, err := f.engine.Analyze(context.Background(), AnalyzeRequest{
		PersonaID:  "teacher",
		Transcript: "One. Two. Three.",
		Seconds:   3,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := strings.Join(res.Emotions, ","); got != "nervous,neutral,neutral" {
		t.Errorf("emotions = %q", got)
	}
}

func TestEngine_ClassifierTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.classifier.ClassifyFunc = func(ctx context.Context, _ []string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.engine.classifyTimeout = 20 * time.Millisecond

	res, err := f.engine.Analyze(context.Background(), AnalyzeRequest{
		PersonaID:  "ted",
		Transcript: "Hello world.",
		Seconds:    1,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Emotions) != 1 || res.Emotions[0] != "neutral" {
		t.Errorf("emotions = %v", res.Emotions)
	}
}

func TestEngine_Confirm(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Analyze(ctx, AnalyzeRequest{PersonaID: "ted", Transcript: tedTranscript(), Seconds: 36})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	url, err := f.engine.Confirm(ctx, res.AttemptID, "ted")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if url != "https://murf.example/a.mp3" {
		t.Errorf("url = %q", url)
	}
	calls := f.tts.Calls()
	if len(calls) != 1 || calls[0].Voice.ID != "en-US-natalie" || calls[0].Text != res.Narration {
		t.Errorf("tts calls = %+v", calls)
	}

	again, err := f.engine.Confirm(ctx, res.AttemptID, "ted")
	if err != nil || again != url || f.tts.CallCount() != 1 {
		t.Errorf("second confirm = %q, %v with %d tts calls", again, err, f.tts.CallCount())
	}
}

func TestEngine_ConfirmErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	res, _ := f.engine.Analyze(ctx, AnalyzeRequest{PersonaID: "ted", Transcript: "Hello.", Seconds: 1})

	tests := []struct {
		name      string
		attemptID string
		personaID string
		wantErr   error
	}{
		{"unknown attempt", "nope", "ted", attempt.ErrNotFound},
		{"unknown persona", res.AttemptID, "nobody", persona.ErrUnknownPersona},
		{"persona mismatch", res.AttemptID, "leader", attempt.ErrPersonaMismatch},
		{"empty attempt id", "", "ted", ErrInvalidRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.Confirm(ctx, tc.attemptID, tc.personaID); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if f.tts.CallCount() != 0 {
		t.Errorf("tts called %d times", f.tts.CallCount())
	}
}

func TestEngine_ConfirmTTSFailureIsRetryable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	res, _ := f.engine.Analyze(ctx, AnalyzeRequest{PersonaID: "ted", Transcript: "Hello.", Seconds: 1})

	f.tts.Err = errors.New("murf: 503")
	f.tts.Result = nil
	if _, err := f.engine.Confirm(ctx, res.AttemptID, "ted"); !errors.Is(err, resilience.ErrCollaboratorError) {
		t.Fatalf("err = %v, want ErrCollaboratorError", err)
	}

	f.tts.Err = nil
	f.tts.Result = &tts.Result{URL: "https://murf.example/b.mp3"}
	url, err := f.engine.Confirm(ctx, res.AttemptID, "ted")
	if err != nil || url != "https://murf.example/b.mp3" {
		t.Fatalf("retry = %q, %v", url, err)
	}
}

func TestEngine_SessionLogFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "sessions.jsonl")
	f.engine.sessions = sessionlog.Open(path)

	if _, err := f.engine.Analyze(context.Background(), AnalyzeRequest{PersonaID: "ted", Transcript: "Hello.", Seconds: 1}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, ok := f.engine.sessions.(*sessionlog.FileStore); !ok {
		t.Fatalf("sessions = %T", f.engine.sessions)
	}
}

func TestEngine_Personas(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ps := f.engine.Personas()
	if len(ps) != 3 || ps[0].ID != "ted" || ps[1].ID != "leader" || ps[2].ID != "teacher" {
		t.Fatalf("personas = %+v", ps)
	}
}

func TestEngine_SpansCarryAttemptAndErrors(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})

	f := newFixture(t)
	ctx := context.Background()
	res, err := f.engine.Analyze(ctx, AnalyzeRequest{PersonaID: "ted", Transcript: tedTranscript(), Seconds: 36})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := f.engine.Confirm(ctx, "missing", "ted"); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("Confirm err = %v, want ErrNotFound", err)
	}

	byName := map[string]tracetest.SpanStub{}
	for _, s := range exp.GetSpans() {
		byName[s.Name] = s
	}
	attrs := func(s tracetest.SpanStub) map[attribute.Key]string {
		m := map[attribute.Key]string{}
		for _, kv := range s.Attributes {
			m[kv.Key] = kv.Value.AsString()
		}
		return m
	}

	analyzed, ok := byName["coach.Analyze"]
	if !ok {
		t.Fatal("no coach.Analyze span")
	}
	if a := attrs(analyzed); a[observe.PersonaKey] != "ted" || a[observe.AttemptKey] != res.AttemptID {
		t.Errorf("coach.Analyze attributes = %v", a)
	}
	if analyzed.Status.Code == codes.Error {
		t.Errorf("coach.Analyze status = %+v, want not error", analyzed.Status)
	}

	confirmed, ok := byName["coach.Confirm"]
	if !ok {
		t.Fatal("no coach.Confirm span")
	}
	if a := attrs(confirmed); a[observe.AttemptKey] != "missing" {
		t.Errorf("coach.Confirm attributes = %v", a)
	}
	if confirmed.Status.Code != codes.Error {
		t.Errorf("coach.Confirm status = %+v, want error", confirmed.Status)
	}
}
