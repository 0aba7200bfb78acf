package httpclassifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
)

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty baseURL")
	}
}

func TestClassify_PreservesOrder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != detectPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req detectRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := detectResponse{DominantEmotion: "Neutral"}
		switch {
		case strings.Contains(req.Text, "excited"):
			resp = detectResponse{DominantEmotion: "Joy"}
		case strings.Contains(req.Text, "worried"):
			resp = detectResponse{Emotions: []labelScore{{"fear", 0.7}, {"sadness", 0.2}}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithConcurrency(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Classify(context.Background(), []string{
		"I am so excited to be here.",
		"   ",
		"I was worried about this talk.",
		"Here is the plan.",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []string{"joy", emotion.Neutral, "fear", "neutral"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("requests = %d, want 3 (blank sentence skipped)", n)
	}
}

func TestClassify_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if _, err := c.Classify(context.Background(), []string{"hello there."}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPickLabel(t *testing.T) {
	tests := []struct {
		name string
		in   detectResponse
		want string
	}{
		{"dominant", detectResponse{DominantEmotion: " Calm "}, "calm"},
		{"highest score", detectResponse{Emotions: []labelScore{{"anger", 0.1}, {"Surprise", 0.8}}}, "surprise"},
		{"empty", detectResponse{}, emotion.Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickLabel(tt.in); got != tt.want {
				t.Errorf("pickLabel = %q, want %q", got, tt.want)
			}
		})
	}
}
