package coqui

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

// buildTestWAV returns a minimal mono 16 kHz RIFF/WAVE file wrapping pcm.
func buildTestWAV(pcm []byte) []byte {
	le := binary.LittleEndian
	buf := make([]byte, 0, 44+len(pcm))
	u32 := func(v uint32) { buf = le.AppendUint32(buf, v) }
	u16 := func(v uint16) { buf = le.AppendUint16(buf, v) }

	buf = append(buf, "RIFF"...)
	u32(uint32(36 + len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	u32(16)
	u16(1)
	u16(1)
	u32(16000)
	u32(32000)
	u16(2)
	u16(16)
	buf = append(buf, "data"...)
	u32(uint32(len(pcm)))
	return append(buf, pcm...)
}

func mustNew(t *testing.T, serverURL string, opts ...Option) *Provider {
	t.Helper()
	p, err := New(serverURL, opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", serverURL, err)
	}
	return p
}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}

	p := mustNew(t, "http://localhost:5002/")
	if p.serverURL != "http://localhost:5002" {
		t.Errorf("serverURL = %q, want trailing slash stripped", p.serverURL)
	}
	if p.language != defaultLanguage {
		t.Errorf("language = %q, want %q", p.language, defaultLanguage)
	}
	if p.apiMode != APIModeStandard {
		t.Errorf("apiMode = %q, want standard", p.apiMode)
	}
	if p.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", p.httpClient.Timeout, defaultTimeout)
	}

	p = mustNew(t, "http://x", WithLanguage("de"), WithTimeout(time.Second), WithAPIMode(APIModeXTTS))
	if p.language != "de" || p.httpClient.Timeout != time.Second || p.apiMode != APIModeXTTS {
		t.Errorf("options not applied: %+v", p)
	}
}

func TestSynthesize_Standard(t *testing.T) {
	wav := buildTestWAV([]byte{1, 2, 3, 4})
	var gotText, gotSpeaker string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != apiTTSEndpoint {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotText = r.URL.Query().Get("text")
		gotSpeaker = r.URL.Query().Get("speaker_id")
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	res, err := p.Synthesize(context.Background(), "Slow down a little.", tts.VoiceProfile{ID: "p225"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotText != "Slow down a little." || gotSpeaker != "p225" {
		t.Errorf("query text=%q speaker=%q", gotText, gotSpeaker)
	}
	if res.ContentType != "audio/wav" {
		t.Errorf("content type = %q", res.ContentType)
	}
	if string(res.Audio) != string(wav) {
		t.Error("expected the WAV file to be returned unchanged")
	}
	if res.Hosted() {
		t.Error("coqui results are never hosted")
	}
}

func TestSynthesize_XTTS(t *testing.T) {
	wav := buildTestWAV([]byte{9, 9})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != xttsEndpoint {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body xttsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.SpeakerWav != "Ana Florence" || body.Language != "en" {
			t.Errorf("body = %+v", body)
		}
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithAPIMode(APIModeXTTS))
	if _, err := p.Synthesize(context.Background(), "Great pacing.", tts.VoiceProfile{ID: "Ana Florence"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
}

func TestSynthesize_XTTSRequiresVoice(t *testing.T) {
	p := mustNew(t, "http://unused", WithAPIMode(APIModeXTTS))
	if _, err := p.Synthesize(context.Background(), "hi", tts.VoiceProfile{}); err == nil {
		t.Fatal("expected error for empty voice ID")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	p := mustNew(t, "http://unused")
	if _, err := p.Synthesize(context.Background(), "   ", tts.VoiceProfile{ID: "v"}); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	if _, err := p.Synthesize(context.Background(), "hi", tts.VoiceProfile{}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSynthesize_NotWAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("definitely not audio"))
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	if _, err := p.Synthesize(context.Background(), "hi", tts.VoiceProfile{}); err == nil {
		t.Fatal("expected error for non-WAV body")
	}
}

func TestSynthesize_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := mustNew(t, srv.URL)
	_, err := p.Synthesize(ctx, "hi", tts.VoiceProfile{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want wrapped context.DeadlineExceeded", err)
	}
}

func TestParseWAV(t *testing.T) {
	info, err := parseWAV(buildTestWAV([]byte{1, 2}))
	if err != nil {
		t.Fatalf("parseWAV: %v", err)
	}
	if info.DataOffset != 44 || info.SampleRate != 16000 || info.Channels != 1 {
		t.Errorf("info = %+v", info)
	}

	bad := [][]byte{
		nil,
		[]byte("RIFF"),
		[]byte("RIFF\x00\x00\x00\x00WAVX"),
		[]byte("RIFF\x00\x00\x00\x00WAVE"),
	}
	for i, b := range bad {
		if _, err := parseWAV(b); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
