package murf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestSynthesize_Success(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != generatePath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("api-key") != "murf-key" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"audioFile":"https://murf.example/a.mp3","audioLengthInSeconds":3.2}`))
	}))
	defer srv.Close()

	p, err := New("murf-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Synthesize(context.Background(), "Nice work.", tts.VoiceProfile{ID: "en-US-natalie"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.VoiceID != "en-US-natalie" || got.Text != "Nice work." || got.Format != "MP3" {
		t.Errorf("request = %+v", got)
	}
	if !res.Hosted() || res.URL != "https://murf.example/a.mp3" {
		t.Errorf("result = %+v", res)
	}
	if res.ContentType != "audio/mpeg" {
		t.Errorf("content type = %q", res.ContentType)
	}
}

func TestSynthesize_LegacyAudioURLField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"audioUrl":"https://murf.example/legacy.mp3"}`))
	}))
	defer srv.Close()

	p, _ := New("k", WithBaseURL(srv.URL))
	res, err := p.Synthesize(context.Background(), "x", tts.VoiceProfile{ID: "v"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.URL != "https://murf.example/legacy.mp3" {
		t.Errorf("URL = %q", res.URL)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"errorMessage":"invalid api key"}`, http.StatusUnauthorized)
		}},
		{"no link", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			p, _ := New("k", WithBaseURL(srv.URL))
			if _, err := p.Synthesize(context.Background(), "x", tts.VoiceProfile{ID: "v"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSynthesize_InputValidation(t *testing.T) {
	p, _ := New("k", WithBaseURL("http://unused"))
	if _, err := p.Synthesize(context.Background(), "", tts.VoiceProfile{ID: "v"}); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := p.Synthesize(context.Background(), "x", tts.VoiceProfile{}); err == nil {
		t.Error("expected error for empty voice")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p, _ := New("k", WithBaseURL(srv.URL))
	_, err := p.Synthesize(ctx, "x", tts.VoiceProfile{ID: "v"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestBuildRequest_Rate(t *testing.T) {
	tests := []struct {
		speed float64
		want  int
	}{
		{0, 0},
		{1.0, 0},
		{1.1, 10},
		{0.9, -10},
		{2.0, 50},
		{0.3, -50},
	}
	for _, tt := range tests {
		r := buildRequest("t", tts.VoiceProfile{ID: "v", SpeedFactor: tt.speed}, "MP3")
		if r.Rate != tt.want {
			t.Errorf("speed %.1f: rate = %d, want %d", tt.speed, r.Rate, tt.want)
		}
	}
}

func TestBuildRequest_Style(t *testing.T) {
	r := buildRequest("t", tts.VoiceProfile{ID: "v", Metadata: map[string]string{"style": "Conversational"}}, "WAV")
	if r.Style != "Conversational" || r.Format != "WAV" {
		t.Errorf("request = %+v", r)
	}
	if contentType("WAV") != "audio/wav" {
		t.Error("WAV format should map to audio/wav")
	}
}
