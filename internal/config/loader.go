package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":     {"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq"},
	"tts":     {"murf", "elevenlabs", "coqui"},
	"emotion": {"http", "llm"},
}

// Defaults applied by [SetDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultFrontendOrigin  = "http://localhost:3000"
	DefaultPublicBaseURL   = "http://localhost:8080"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultLLMModel        = "gemini-2.5-flash"
	DefaultAudioBucket     = "speechcoach-audio"
	DefaultAudioTTL        = 24 * time.Hour
)

// Load reads the YAML file at path, applies environment overrides via
// lookupEnv, fills defaults and validates the result. A missing file is not
// an error: the configuration then comes from the environment and defaults.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using environment and defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		default:
			defer f.Close()
			if err := decode(f, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		}
	}
	if lookupEnv != nil {
		ApplyEnv(cfg, lookupEnv)
	}
	SetDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaults and validates
// the result. No environment overrides are applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	SetDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the environment variables that are set.
// LLM_API_KEY falls back to GOOGLE_API_KEY and TTS_API_KEY to MURF_API_KEY.
func ApplyEnv(cfg *Config, lookupEnv func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookupEnv(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&cfg.Server.ListenAddr, "SPEECHCOACH_LISTEN_ADDR")
	var level string
	set(&level, "SPEECHCOACH_LOG_LEVEL")
	if level != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(level))
	}
	set(&cfg.Server.FrontendOrigin, "FRONTEND_ORIGIN")
	set(&cfg.Server.PublicBaseURL, "SPEECHCOACH_PUBLIC_BASE_URL")

	set(&cfg.Providers.LLM.Name, "LLM_PROVIDER")
	set(&cfg.Providers.LLM.Model, "LLM_MODEL")
	set(&cfg.Providers.LLM.APIKey, "LLM_API_KEY", "GOOGLE_API_KEY")
	set(&cfg.Providers.LLM.BaseURL, "LLM_BASE_URL")

	set(&cfg.Providers.TTS.Name, "TTS_PROVIDER")
	set(&cfg.Providers.TTS.APIKey, "TTS_API_KEY", "MURF_API_KEY")
	set(&cfg.Providers.TTS.BaseURL, "TTS_BASE_URL")

	set(&cfg.Providers.Emotion.Name, "EMOTION_PROVIDER")
	set(&cfg.Providers.Emotion.BaseURL, "EMOTION_BASE_URL")

	set(&cfg.Archive.PostgresDSN, "ARCHIVE_POSTGRES_DSN")
	set(&cfg.Audio.NATSURL, "AUDIO_NATS_URL")
	set(&cfg.SessionLog.Path, "SESSION_LOG_PATH")
}

// SetDefaults fills unset fields. Providers whose credentials are present but
// whose name is unset default to gemini and murf.
func SetDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if s.FrontendOrigin == "" {
		s.FrontendOrigin = DefaultFrontendOrigin
	}
	if s.PublicBaseURL == "" {
		s.PublicBaseURL = DefaultPublicBaseURL
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}

	p := &cfg.Providers
	if p.LLM.Name == "" && p.LLM.APIKey != "" {
		p.LLM.Name = "gemini"
	}
	if p.LLM.Name == "gemini" && p.LLM.Model == "" {
		p.LLM.Model = DefaultLLMModel
	}
	if p.TTS.Name == "" && p.TTS.APIKey != "" {
		p.TTS.Name = "murf"
	}

	if cfg.Attempts.Confirmation == "" {
		cfg.Attempts.Confirmation = ConfirmNarration
	}
	if cfg.Audio.Bucket == "" {
		cfg.Audio.Bucket = DefaultAudioBucket
	}
	if cfg.Audio.TTL == 0 {
		cfg.Audio.TTL = DefaultAudioTTL
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if err := validateOrigin("server.public_base_url", cfg.Server.PublicBaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateOrigin("server.frontend_origin", cfg.Server.FrontendOrigin); err != nil {
		errs = append(errs, err)
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("emotion", cfg.Providers.Emotion.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; coaching will always use the local fallback")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is not configured; confirm-feedback will fail with a collaborator error")
	}
	errs = append(errs, validateTTSEntry("providers.tts", cfg.Providers.TTS)...)
	for i, fb := range cfg.Providers.TTSFallbacks {
		prefix := fmt.Sprintf("providers.tts_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName("tts", fb.Name)
		errs = append(errs, validateTTSEntry(prefix, fb)...)
	}
	if len(cfg.Providers.TTSFallbacks) > 0 && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts_fallbacks requires providers.tts"))
	}
	if cfg.Providers.Emotion.Name == "http" && cfg.Providers.Emotion.BaseURL == "" {
		errs = append(errs, errors.New("providers.emotion.base_url is required for the http classifier"))
	}
	if cfg.Providers.Emotion.Name == "llm" && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.emotion \"llm\" requires providers.llm"))
	}

	if t := cfg.Coaching.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("coaching.temperature %.2f is out of range [0, 2]", *t))
	}
	if cfg.Coaching.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("coaching.max_tokens %d must not be negative", cfg.Coaching.MaxTokens))
	}

	for name, d := range map[string]time.Duration{
		"coaching.timeout":         cfg.Coaching.Timeout,
		"emotion.timeout":          cfg.Emotion.Timeout,
		"attempts.ttl":             cfg.Attempts.TTL,
		"attempts.retention":       cfg.Attempts.Retention,
		"attempts.sweep_interval":  cfg.Attempts.SweepInterval,
		"attempts.narrate_timeout": cfg.Attempts.NarrateTimeout,
		"audio.ttl":                cfg.Audio.TTL,
		"resilience.reset_timeout": cfg.Resilience.ResetTimeout,
		"server.shutdown_timeout":  cfg.Server.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s %s must not be negative", name, d))
		}
	}
	if cfg.Attempts.Confirmation != "" && !cfg.Attempts.Confirmation.IsValid() {
		errs = append(errs, fmt.Errorf("attempts.confirmation %q is invalid; valid values: narration, always, never", cfg.Attempts.Confirmation))
	}
	if cfg.Resilience.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("resilience.max_failures %d must not be negative", cfg.Resilience.MaxFailures))
	}

	return errors.Join(errs...)
}

func validateTTSEntry(prefix string, e ProviderEntry) []error {
	var errs []error
	switch e.Name {
	case "murf", "elevenlabs":
		if e.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for %s", prefix, e.Name))
		}
	case "coqui":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for coqui", prefix))
		}
	}
	return errs
}

func validateOrigin(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute http(s) URL", field, raw)
	}
	return nil
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
