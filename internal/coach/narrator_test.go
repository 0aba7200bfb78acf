package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/pkg/audiostore"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
	ttsmock "github.com/MrWong99/speechcoach/pkg/provider/tts/mock"
)

func narrationRequest() attempt.NarrationRequest {
	return attempt.NarrationRequest{
		AttemptID: "3f2b6c1e-1a2b-4c3d-9e8f-0a1b2c3d4e5f",
		PersonaID: "leader",
		Text:      "Strong close. - Slow your opening.",
		Voice:     persona.VoiceConfig{ID: "en-US-marcus", Style: "Conversational", Speed: 1.1},
	}
}

func TestTTSNarrator_HostedURL(t *testing.T) {
	t.Parallel()
	p := &ttsmock.Provider{Result: &tts.Result{URL: "https://murf.example/x.mp3"}}
	store := audiostore.NewMemStore(0)
	n := NewTTSNarrator(p, store, "http://localhost:8080")

	url, err := n.Narrate(context.Background(), narrationRequest())
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if url != "https://murf.example/x.mp3" {
		t.Errorf("url = %q", url)
	}
	if store.Len() != 0 {
		t.Errorf("hosted result should not be stored")
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	v := calls[0].Voice
	if v.ID != "en-US-marcus" || v.SpeedFactor != 1.1 || v.Metadata["style"] != "Conversational" {
		t.Errorf("voice = %+v", v)
	}
	if calls[0].Text != "Strong close. - Slow your opening." {
		t.Errorf("text = %q", calls[0].Text)
	}
}

func TestTTSNarrator_StoresBytes(t *testing.T) {
	t.Parallel()
	p := &ttsmock.Provider{Result: &tts.Result{Audio: []byte("RIFFwav"), ContentType: "audio/wav"}}
	store := audiostore.NewMemStore(0)
	n := NewTTSNarrator(p, store, "https://coach.example.com/")

	req := narrationRequest()
	url, err := n.Narrate(context.Background(), req)
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	wantKey := req.AttemptID + ".wav"
	if url != "https://coach.example.com/audio/"+wantKey {
		t.Errorf("url = %q", url)
	}
	obj, err := store.Get(context.Background(), wantKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(obj.Data) != "RIFFwav" || obj.ContentType != "audio/wav" {
		t.Errorf("stored object = %q %q", obj.Data, obj.ContentType)
	}
}

func TestTTSNarrator_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		p     *ttsmock.Provider
		store audiostore.Store
	}{
		{name: "provider error", p: &ttsmock.Provider{Err: errors.New("boom")}, store: audiostore.NewMemStore(0)},
		{name: "nil result", p: &ttsmock.Provider{}, store: audiostore.NewMemStore(0)},
		{name: "empty result", p: &ttsmock.Provider{Result: &tts.Result{}}, store: audiostore.NewMemStore(0)},
		{name: "bytes without store", p: &ttsmock.Provider{Result: &tts.Result{Audio: []byte("x"), ContentType: "audio/mpeg"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			n := NewTTSNarrator(tc.p, tc.store, "http://localhost")
			url, err := n.Narrate(context.Background(), narrationRequest())
			if err == nil {
				t.Fatalf("expected error, got url %q", url)
			}
			if url != "" {
				t.Errorf("url = %q on error", url)
			}
		})
	}
}
