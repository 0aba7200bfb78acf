package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/speechcoach/internal/config"
	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
	emotionmock "github.com/MrWong99/speechcoach/pkg/provider/emotion/mock"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
	llmmock "github.com/MrWong99/speechcoach/pkg/provider/llm/mock"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
	ttsmock "github.com/MrWong99/speechcoach/pkg/provider/tts/mock"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("verbose should be invalid")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{name: "empty is valid"},
		{
			name: "valid providers",
			yaml: "providers:\n  llm:\n    name: gemini\n  tts:\n    name: elevenlabs\n    api_key: k\n  emotion:\n    name: llm\n",
		},
		{
			name:    "bad log level",
			yaml:    "server:\n  log_level: loud\n",
			wantErr: []string{`server.log_level "loud" is invalid`},
		},
		{
			name:    "relative public url",
			yaml:    "server:\n  public_base_url: /audio\n",
			wantErr: []string{"server.public_base_url", "absolute http(s) URL"},
		},
		{
			name:    "murf without key",
			yaml:    "providers:\n  tts:\n    name: murf\n",
			wantErr: []string{"providers.tts.api_key is required for murf"},
		},
		{
			name:    "coqui fallback without url",
			yaml:    "providers:\n  tts:\n    name: murf\n    api_key: k\n  tts_fallbacks:\n    - name: coqui\n",
			wantErr: []string{"providers.tts_fallbacks[0].base_url is required for coqui"},
		},
		{
			name:    "fallback without primary",
			yaml:    "providers:\n  tts_fallbacks:\n    - name: coqui\n      base_url: http://x\n",
			wantErr: []string{"providers.tts_fallbacks requires providers.tts"},
		},
		{
			name:    "http emotion without url",
			yaml:    "providers:\n  emotion:\n    name: http\n",
			wantErr: []string{"providers.emotion.base_url is required"},
		},
		{
			name:    "llm emotion without llm",
			yaml:    "providers:\n  emotion:\n    name: llm\n",
			wantErr: []string{`providers.emotion "llm" requires providers.llm`},
		},
		{
			name:    "bad confirmation and temperature",
			yaml:    "attempts:\n  confirmation: sometimes\ncoaching:\n  temperature: 3\n",
			wantErr: []string{`attempts.confirmation "sometimes" is invalid`, "coaching.temperature 3.00 is out of range"},
		},
		{
			name:    "negative duration",
			yaml:    "attempts:\n  ttl: -1m\n",
			wantErr: []string{"attempts.ttl -1m0s must not be negative"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should contain %q", err, want)
				}
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	var gotEntry config.ProviderEntry
	reg.RegisterLLM("mock", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})
	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) { return &ttsmock.Provider{}, nil })
	reg.RegisterTTS("broken", func(config.ProviderEntry) (tts.Provider, error) { return nil, errors.New("no key") })
	reg.RegisterEmotion("mock", func(config.ProviderEntry) (emotion.Classifier, error) { return &emotionmock.Classifier{}, nil })

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "mock", Model: "m1"}); err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if gotEntry.Model != "m1" {
		t.Errorf("factory got entry %+v", gotEntry)
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateTTS: %v", err)
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "broken"}); err == nil || errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTTS(broken) err = %v, want factory error", err)
	}
	if _, err := reg.CreateEmotion(config.ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateEmotion: %v", err)
	}

	for _, err := range []error{
		func() error { _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); return err }(),
		func() error { _, err := reg.CreateTTS(config.ProviderEntry{Name: "nope"}); return err }(),
		func() error { _, err := reg.CreateEmotion(config.ProviderEntry{Name: "nope"}); return err }(),
	} {
		if !errors.Is(err, config.ErrProviderNotRegistered) {
			t.Errorf("err = %v, want ErrProviderNotRegistered", err)
		}
	}

	names := reg.Names()
	if strings.Join(names["tts"], ",") != "broken,mock" || len(names["llm"]) != 1 {
		t.Errorf("Names = %v", names)
	}
}
